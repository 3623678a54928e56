package store

import (
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltDB implements DB with a bbolt database file. Writes are buffered in
// memory and committed in a single transaction by Flush.
type BoltDB struct {
	db *bolt.DB
	mu sync.RWMutex
	p  pending
}

// Flush implements DB.
func (db *BoltDB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	err := db.db.Update(func(tx *bolt.Tx) error {
		for bucket, puts := range db.p.puts {
			b := tx.Bucket([]byte(bucket))
			for key, val := range puts {
				if err := b.Put([]byte(key), val); err != nil {
					return fmt.Errorf("put %s: %w", bucket, err)
				}
			}
		}
		for bucket, dels := range db.p.dels {
			b := tx.Bucket([]byte(bucket))
			for key := range dels {
				if err := b.Delete([]byte(key)); err != nil {
					return fmt.Errorf("delete %s: %w", bucket, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.p.reset()
	return nil
}

// Cancel implements DB.
func (db *BoltDB) Cancel() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.p.reset()
}

// Close flushes any pending writes and closes the database file.
func (db *BoltDB) Close() error {
	if err := db.Flush(); err != nil {
		db.db.Close()
		return err
	}
	return db.db.Close()
}

func (db *BoltDB) get(bucket string, key []byte) (val []byte) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if val, ok := db.p.get(bucket, key); ok {
		return val
	}
	err := db.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucket)).Get(key); v != nil {
			// bbolt values are only valid for the life of the transaction
			val = append([]byte(nil), v...)
		}
		return nil
	})
	check(err)
	return
}

func (db *BoltDB) put(bucket string, key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.p.put(bucket, key, append([]byte(nil), value...))
	return nil
}

func (db *BoltDB) delete(bucket string, key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.p.delete(bucket, key)
	return nil
}

// Bucket implements DB.
func (db *BoltDB) Bucket(name []byte) DBBucket {
	var exists bool
	check(db.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(name) != nil
		return nil
	}))
	if !exists {
		return nil
	}
	return boltBucket{string(name), db}
}

// CreateBucket implements DB.
func (db *BoltDB) CreateBucket(name []byte) (DBBucket, error) {
	err := db.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucket(name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return boltBucket{string(name), db}, nil
}

type boltBucket struct {
	name string
	db   *BoltDB
}

func (b boltBucket) Get(key []byte) []byte       { return b.db.get(b.name, key) }
func (b boltBucket) Put(key, value []byte) error { return b.db.put(b.name, key, value) }
func (b boltBucket) Delete(key []byte) error     { return b.db.delete(b.name, key) }

// OpenBoltDB opens the bbolt database at path, creating it if necessary.
func OpenBoltDB(path string) (*BoltDB, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}
	db := &BoltDB{db: bdb}
	db.p.reset()
	return db, nil
}
