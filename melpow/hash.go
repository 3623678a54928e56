package melpow

import (
	"go.melnet.tech/stf/types"
	"golang.org/x/crypto/sha3"
)

// A HashFunction labels the nodes of the proof graph. The puzzle seed is
// passed alongside every input so that labels are unique to one puzzle.
type HashFunction interface {
	Hash(chi, data []byte) types.Hash256
}

type legacyHash struct{}

// Hash implements HashFunction.
func (legacyHash) Hash(chi, data []byte) types.Hash256 {
	return types.HashKeyed(chi, data)
}

type sha3Hash struct{}

// Hash implements HashFunction.
func (sha3Hash) Hash(chi, data []byte) types.Hash256 {
	h := sha3.New256()
	h.Write(chi)
	h.Write(data)
	var sum types.Hash256
	h.Sum(sum[:0])
	return sum
}

var (
	// LegacyHash is the original labeling function, a blake2b hash keyed by
	// the puzzle seed.
	LegacyHash HashFunction = legacyHash{}

	// SHA3Hash is the successor labeling function, activated by TIP-910.
	SHA3Hash HashFunction = sha3Hash{}
)
