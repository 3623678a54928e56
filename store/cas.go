package store

import (
	"go.melnet.tech/stf/types"
)

var bNodes = []byte("Nodes")

// A CAS is a content-addressed store of byte strings, kept in a bucket of a
// DB. Inserted values become durable when Flush is called.
type CAS struct {
	db DB
	b  DBBucket
}

// Get returns the value stored under h.
func (c *CAS) Get(h types.Hash256) ([]byte, bool) {
	v := c.b.Get(h[:])
	return v, v != nil
}

// Insert stores b under h. The caller is responsible for h being the hash of
// b under some fixed scheme; reinserting an existing hash is a no-op in effect.
func (c *CAS) Insert(h types.Hash256, b []byte) {
	check(c.b.Put(h[:], b))
}

// Flush makes all prior inserts durable.
func (c *CAS) Flush() error {
	return c.db.Flush()
}

// NewCAS returns a CAS backed by db, creating its bucket if necessary.
func NewCAS(db DB) (*CAS, error) {
	b := db.Bucket(bNodes)
	if b == nil {
		var err error
		if b, err = db.CreateBucket(bNodes); err != nil {
			return nil, err
		}
	}
	return &CAS{db: db, b: b}, nil
}
