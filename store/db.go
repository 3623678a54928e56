// Package store implements the ledger's persistent state: a content-addressed
// node store over a key-value database, a persistent trie built on it, and
// the typed coin, transaction, stake, and history maps consumed by the
// consensus package.
package store

import (
	"errors"
	"sync"
)

// A DB is a generic key-value database. Writes are staged until Flush.
type DB interface {
	Bucket(name []byte) DBBucket
	CreateBucket(name []byte) (DBBucket, error)
	Flush() error
	Cancel()
	Close() error
}

// A DBBucket is a set of key-value pairs.
type DBBucket interface {
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
}

// pending holds the staged writes of a DB.
type pending struct {
	puts map[string]map[string][]byte
	dels map[string]map[string]struct{}
}

func (p *pending) get(bucket string, key []byte) (val []byte, found bool) {
	if val, ok := p.puts[bucket][string(key)]; ok {
		return val, true
	} else if _, ok := p.dels[bucket][string(key)]; ok {
		return nil, true
	}
	return nil, false
}

func (p *pending) put(bucket string, key, value []byte) {
	if p.puts[bucket] == nil {
		p.puts[bucket] = make(map[string][]byte)
	}
	p.puts[bucket][string(key)] = value
	delete(p.dels[bucket], string(key))
}

func (p *pending) delete(bucket string, key []byte) {
	if p.dels[bucket] == nil {
		p.dels[bucket] = make(map[string]struct{})
	}
	p.dels[bucket][string(key)] = struct{}{}
	delete(p.puts[bucket], string(key))
}

func (p *pending) reset() {
	p.puts = make(map[string]map[string][]byte)
	p.dels = make(map[string]map[string]struct{})
}

// MemDB implements DB with an in-memory map. It is safe for concurrent use.
type MemDB struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	p       pending
}

// Flush implements DB.
func (db *MemDB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for bucket, puts := range db.p.puts {
		for key, val := range puts {
			db.buckets[bucket][key] = val
		}
	}
	for bucket, dels := range db.p.dels {
		for key := range dels {
			delete(db.buckets[bucket], key)
		}
	}
	db.p.reset()
	return nil
}

// Cancel implements DB.
func (db *MemDB) Cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.p.reset()
}

// Close implements DB.
func (db *MemDB) Close() error { return nil }

func (db *MemDB) get(bucket string, key []byte) []byte {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if val, ok := db.p.get(bucket, key); ok {
		return val
	}
	return db.buckets[bucket][string(key)]
}

func (db *MemDB) put(bucket string, key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.buckets[bucket] == nil {
		return errors.New("bucket does not exist")
	}
	db.p.put(bucket, key, append([]byte(nil), value...))
	return nil
}

func (db *MemDB) delete(bucket string, key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.buckets[bucket] == nil {
		return errors.New("bucket does not exist")
	}
	db.p.delete(bucket, key)
	return nil
}

// Bucket implements DB.
func (db *MemDB) Bucket(name []byte) DBBucket {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.buckets[string(name)] == nil {
		return nil
	}
	return memBucket{string(name), db}
}

// CreateBucket implements DB.
func (db *MemDB) CreateBucket(name []byte) (DBBucket, error) {
	db.mu.Lock()
	if db.buckets[string(name)] != nil {
		db.mu.Unlock()
		return nil, errors.New("bucket already exists")
	}
	db.buckets[string(name)] = make(map[string][]byte)
	db.mu.Unlock()
	return db.Bucket(name), nil
}

type memBucket struct {
	name string
	db   *MemDB
}

func (b memBucket) Get(key []byte) []byte       { return b.db.get(b.name, key) }
func (b memBucket) Put(key, value []byte) error { return b.db.put(b.name, key, value) }
func (b memBucket) Delete(key []byte) error     { return b.db.delete(b.name, key) }

// NewMemDB returns an in-memory DB.
func NewMemDB() *MemDB {
	db := &MemDB{buckets: make(map[string]map[string][]byte)}
	db.p.reset()
	return db
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
