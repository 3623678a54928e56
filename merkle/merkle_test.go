package merkle

import (
	"testing"

	"go.melnet.tech/stf/types"
	"lukechampine.com/frand"
)

func TestLeafNodeDomainSeparation(t *testing.T) {
	var l, r types.Hash256
	frand.Read(l[:])
	frand.Read(r[:])
	if LeafHash(append(l[:], r[:]...)) == NodeHash(l, r) {
		t.Fatal("leaf and node hashes collide")
	}
}

func TestRoot(t *testing.T) {
	if Root(nil) != (types.Hash256{}) {
		t.Fatal("empty root should be zero")
	}
	leaves := make([]types.Hash256, 8)
	for i := range leaves {
		leaves[i] = LeafHash(frand.Bytes(16))
	}
	if Root(leaves[:1]) != leaves[0] {
		t.Fatal("single-leaf root should be the leaf")
	}
	want := NodeHash(
		NodeHash(NodeHash(leaves[0], leaves[1]), NodeHash(leaves[2], leaves[3])),
		NodeHash(NodeHash(leaves[4], leaves[5]), NodeHash(leaves[6], leaves[7])),
	)
	if Root(leaves) != want {
		t.Fatal("root mismatch")
	}
	// unbalanced: split at 4
	want = NodeHash(Root(leaves[:4]), NodeHash(leaves[4], leaves[5]))
	if Root(leaves[:6]) != want {
		t.Fatal("unbalanced root mismatch")
	}

	for i := range leaves {
		proof := []types.Hash256{
			leaves[i^1],
			Root(leaves[(i^2)&^1 : (i^2)&^1+2]),
			Root(leaves[(i^4)&^3 : (i^4)&^3+4]),
		}
		if ProofRoot(leaves[i], uint64(i), proof) != Root(leaves) {
			t.Fatalf("proof for leaf %v did not verify", i)
		}
	}
}
