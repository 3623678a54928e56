// Package merkle implements RFC 6962 style hashing of leaves and interior
// nodes, used to commit to the contents of the ledger's persistent maps.
package merkle

import (
	"go.melnet.tech/stf/types"
)

// from RFC 6962
const leafHashPrefix = 0x00
const nodeHashPrefix = 0x01

// LeafHash computes the hash of a leaf containing data.
func LeafHash(data []byte) types.Hash256 {
	buf := make([]byte, 1+len(data))
	buf[0] = leafHashPrefix
	copy(buf[1:], data)
	return types.HashBytes(buf)
}

// NodeHash computes the Merkle root of a pair of node hashes.
func NodeHash(left, right types.Hash256) types.Hash256 {
	buf := make([]byte, 65)
	buf[0] = nodeHashPrefix
	copy(buf[1:], left[:])
	copy(buf[33:], right[:])
	return types.HashBytes(buf)
}

// Root returns the Merkle root of the supplied leaf hashes. The tree is split
// at the largest power of two smaller than the number of leaves. The root of
// zero leaves is the zero hash.
func Root(leaves []types.Hash256) types.Hash256 {
	switch len(leaves) {
	case 0:
		return types.Hash256{}
	case 1:
		return leaves[0]
	}
	k := 1
	for k*2 < len(leaves) {
		k *= 2
	}
	return NodeHash(Root(leaves[:k]), Root(leaves[k:]))
}

// ProofRoot returns the Merkle root derived from the supplied leaf hash and
// Merkle proof, for a tree whose size is a power of two.
func ProofRoot(leafHash types.Hash256, leafIndex uint64, proof []types.Hash256) types.Hash256 {
	root := leafHash
	for i, h := range proof {
		if leafIndex&(1<<i) == 0 {
			root = NodeHash(root, h)
		} else {
			root = NodeHash(h, root)
		}
	}
	return root
}
