package types

import (
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// HashBytes computes the hash of b using the ledger's hash function.
func HashBytes(b []byte) Hash256 {
	return blake2b.Sum256(b)
}

// HashKeyed computes a keyed hash of b. Keys of any length are accepted; the
// key is first compressed to 32 bytes so that it always fits blake2b's key
// size limit.
func HashKeyed(key, b []byte) Hash256 {
	k := blake2b.Sum256(key)
	h, err := blake2b.New256(k[:])
	if err != nil {
		panic(err) // can't happen; the key is always 32 bytes
	}
	h.Write(b)
	var sum Hash256
	h.Sum(sum[:0])
	return sum
}

// A Hasher streams objects into an instance of the ledger's hash function.
type Hasher struct {
	h   hash.Hash
	sum Hash256 // prevent Sum from allocating
	E   *Encoder
}

// Reset resets the underlying hash and encoder state.
func (h *Hasher) Reset() {
	h.E.n = 0
	h.h.Reset()
}

// WriteDistinguisher writes a distinguisher prefix to the encoder.
func (h *Hasher) WriteDistinguisher(p string) {
	h.E.Write([]byte("mel/" + p + "|"))
}

// Sum returns the digest of the objects written to the Hasher.
func (h *Hasher) Sum() (sum Hash256) {
	_ = h.E.Flush() // no error possible
	h.h.Sum(h.sum[:0])
	return h.sum
}

// NewHasher returns a new Hasher instance.
func NewHasher() *Hasher {
	h, _ := blake2b.New256(nil)
	e := NewEncoder(h)
	return &Hasher{h: h, E: e}
}

// Pool for reducing heap allocations when hashing. This is only necessary
// because blake2b.New256 returns a hash.Hash interface, which prevents the
// compiler from doing escape analysis.
var hasherPool = &sync.Pool{New: func() interface{} { return NewHasher() }}

// HashObject returns the hash of the canonical encoding of v.
func HashObject(v EncoderTo) Hash256 {
	h := hasherPool.Get().(*Hasher)
	defer hasherPool.Put(h)
	h.Reset()
	v.EncodeTo(h.E)
	return h.Sum()
}
