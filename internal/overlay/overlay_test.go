package overlay

import (
	"cmp"
	"sync"
	"sync/atomic"
	"testing"

	"lukechampine.com/frand"
)

func newTestMap(backing map[uint64]string) *Map[uint64, string] {
	return New(func(k uint64) uint64 { return k }, func(k uint64) (string, bool) {
		v, ok := backing[k]
		return v, ok
	})
}

func TestMapOverlay(t *testing.T) {
	m := newTestMap(map[uint64]string{1: "one", 2: "two"})

	if v, ok := m.Get(1); !ok || v != "one" {
		t.Fatal("untouched key should fall through to the backing store")
	} else if m.Len() != 0 {
		t.Fatal("reads should not populate the overlay")
	}

	m.Set(1, "uno")
	m.Delete(2)
	m.Delete(3)
	m.Set(4, "four")
	if v, ok := m.Get(1); !ok || v != "uno" {
		t.Fatal("set value not visible")
	} else if _, ok := m.Get(2); ok {
		t.Fatal("deleted key still visible")
	} else if _, ok := m.Get(3); ok {
		t.Fatal("deleting a missing key made it visible")
	} else if v, ok := m.Get(4); !ok || v != "four" {
		t.Fatal("new key not visible")
	}

	es := m.Entries(cmp.Compare[uint64])
	want := []Entry[uint64, string]{{1, "uno", false}, {2, "", true}, {3, "", true}, {4, "four", false}}
	if len(es) != len(want) {
		t.Fatalf("expected %v entries, got %v", len(want), len(es))
	}
	for i := range es {
		if es[i] != want[i] {
			t.Fatalf("entry %v: got %v, want %v", i, es[i], want[i])
		}
	}
}

func TestMapTake(t *testing.T) {
	m := newTestMap(map[uint64]string{1: "one"})
	if v, ok := m.Take(1); !ok || v != "one" {
		t.Fatal("take of backing key failed")
	} else if _, ok := m.Take(1); ok {
		t.Fatal("second take succeeded")
	} else if _, ok := m.Take(5); ok {
		t.Fatal("take of missing key succeeded")
	} else if m.Len() != 1 {
		t.Fatal("failed take modified the overlay")
	}

	// concurrent takes of the same key: exactly one wins
	for i := 0; i < 20; i++ {
		k := frand.Uint64n(1000) + 10
		m.Set(k, "x")
		var wins atomic.Int32
		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := m.Take(k); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		if wins.Load() != 1 {
			t.Fatalf("expected exactly one winner, got %v", wins.Load())
		}
	}
}
