// Package overlay provides a sharded concurrent map whose entries record
// either a value or its deletion, layered over a read-only backing store.
package overlay

import (
	"sort"
	"sync"
)

const numShards = 64

type entry[V any] struct {
	v       V
	deleted bool
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]entry[V]
}

// A Map is a concurrent overlay. Keys that have never been set or deleted are
// untouched, and reads of them fall through to the backing store.
type Map[K comparable, V any] struct {
	shards [numShards]shard[K, V]
	hash   func(K) uint64
	load   func(K) (V, bool)
}

func (m *Map[K, V]) shard(k K) *shard[K, V] {
	return &m.shards[m.hash(k)%numShards]
}

// Get returns the value of k. Deleted keys are reported as missing; untouched
// keys are read from the backing store without being cached.
func (m *Map[K, V]) Get(k K) (V, bool) {
	s := m.shard(k)
	s.mu.RLock()
	e, ok := s.m[k]
	s.mu.RUnlock()
	if ok {
		if e.deleted {
			var zero V
			return zero, false
		}
		return e.v, true
	}
	return m.load(k)
}

// Set stores v under k.
func (m *Map[K, V]) Set(k K, v V) {
	s := m.shard(k)
	s.mu.Lock()
	s.m[k] = entry[V]{v: v}
	s.mu.Unlock()
}

// Delete marks k as deleted, whether or not it exists.
func (m *Map[K, V]) Delete(k K) {
	s := m.shard(k)
	s.mu.Lock()
	s.m[k] = entry[V]{deleted: true}
	s.mu.Unlock()
}

// Take atomically reads and deletes k. It returns false if k is missing, in
// which case nothing is modified. Of any number of concurrent Takes of the
// same key, at most one succeeds.
func (m *Map[K, V]) Take(k K) (V, bool) {
	s := m.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	if !ok {
		e.v, ok = m.load(k)
	} else {
		ok = !e.deleted
	}
	if !ok {
		var zero V
		return zero, false
	}
	s.m[k] = entry[V]{deleted: true}
	return e.v, true
}

// Len returns the number of touched keys.
func (m *Map[K, V]) Len() int {
	var n int
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// An Entry is a touched key along with its value or deletion.
type Entry[K, V any] struct {
	Key     K
	Value   V
	Deleted bool
}

// Entries returns every touched key in the order defined by cmp.
func (m *Map[K, V]) Entries(cmp func(a, b K) int) []Entry[K, V] {
	var es []Entry[K, V]
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for k, e := range s.m {
			es = append(es, Entry[K, V]{k, e.v, e.deleted})
		}
		s.mu.RUnlock()
	}
	sort.Slice(es, func(i, j int) bool { return cmp(es[i].Key, es[j].Key) < 0 })
	return es
}

// New returns an empty Map over the backing store load. The hash function
// distributes keys across shards.
func New[K comparable, V any](hash func(K) uint64, load func(K) (V, bool)) *Map[K, V] {
	m := &Map[K, V]{hash: hash, load: load}
	for i := range m.shards {
		m.shards[i].m = make(map[K]entry[V])
	}
	return m
}
