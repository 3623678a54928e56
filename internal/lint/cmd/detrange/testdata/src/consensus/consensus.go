package consensus

import "sort"

func sum(m map[string]int) (n int) {
	for _, v := range m { // want "order-dependent iteration over map"
		n += v
	}
	return
}

func keys(m map[string]int) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func union(a, b map[string]int) map[string]struct{} {
	u := make(map[string]struct{})
	for k := range a {
		u[k] = struct{}{}
	}
	for k := range b {
		u[k] = struct{}{}
	}
	return u
}

func slices(s []int) (n int) {
	for _, v := range s {
		n += v
	}
	return
}
