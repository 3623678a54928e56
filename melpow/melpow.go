// Package melpow implements a non-interactive proof of sequential work. The
// prover labels every node of a depth-n binary tree, where each leaf also
// depends on the left siblings of its ancestors, so the labels must be
// computed in order. The root label commits to the whole graph; challenges
// derived from it select leaves whose paths are opened in the proof.
package melpow

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.melnet.tech/stf/types"
)

const (
	// Challenges is the number of leaves opened by a proof.
	Challenges = 200

	// MaxDifficulty is the deepest graph a proof can be verified for.
	MaxDifficulty = 63

	// maxGenerateDifficulty bounds the graphs Generate will hold in memory.
	maxGenerateDifficulty = 32
)

// A node is identified by its depth and the bits of its path from the root.
type node struct {
	depth uint8
	bits  uint64
}

func (n node) child(bit uint64) node { return node{n.depth + 1, n.bits<<1 | bit} }

func (n node) index() uint64 { return 1<<n.depth - 1 + n.bits }

func label(h HashFunction, chi []byte, n node, parents ...types.Hash256) types.Hash256 {
	buf := make([]byte, 9, 9+32*len(parents))
	buf[0] = n.depth
	binary.LittleEndian.PutUint64(buf[1:], n.bits)
	for _, p := range parents {
		buf = append(buf, p[:]...)
	}
	return h.Hash(chi, buf)
}

func challenge(h HashFunction, chi []byte, root types.Hash256, i int, difficulty int) uint64 {
	buf := make([]byte, 32+8)
	copy(buf, root[:])
	binary.LittleEndian.PutUint64(buf[32:], uint64(i))
	c := h.Hash(chi, buf)
	return binary.LittleEndian.Uint64(c[:8]) & (1<<difficulty - 1)
}

// A Proof demonstrates that a graph of the given difficulty was labeled.
type Proof struct {
	Root types.Hash256
	// Openings holds, for each challenge, the labels of the siblings along the
	// challenged leaf's path, from depth 1 down to the leaf.
	Openings [][]types.Hash256
}

// Generate labels the graph for chi and returns a proof. It performs
// 2^(difficulty+1) hash evaluations and keeps every label in memory.
func Generate(chi []byte, difficulty int, h HashFunction) Proof {
	if difficulty < 0 || difficulty > maxGenerateDifficulty {
		panic(fmt.Sprintf("invalid difficulty %v", difficulty))
	}
	labels := make([]types.Hash256, 1<<(difficulty+1)-1)
	var compute func(n node, lefts []types.Hash256) types.Hash256
	compute = func(n node, lefts []types.Hash256) types.Hash256 {
		var l types.Hash256
		if int(n.depth) == difficulty {
			l = label(h, chi, n, lefts...)
		} else {
			left := compute(n.child(0), lefts)
			right := compute(n.child(1), append(lefts[:len(lefts):len(lefts)], left))
			l = label(h, chi, n, left, right)
		}
		labels[n.index()] = l
		return l
	}
	p := Proof{Root: compute(node{}, nil)}
	p.Openings = make([][]types.Hash256, Challenges)
	for i := range p.Openings {
		leaf := challenge(h, chi, p.Root, i, difficulty)
		sibs := make([]types.Hash256, difficulty)
		for d := 1; d <= difficulty; d++ {
			sib := node{uint8(d), (leaf >> (difficulty - d)) ^ 1}
			sibs[d-1] = labels[sib.index()]
		}
		p.Openings[i] = sibs
	}
	return p
}

// Verify reports whether p is a valid proof for chi at the given difficulty.
func (p Proof) Verify(chi []byte, difficulty int, h HashFunction) bool {
	if difficulty < 0 || difficulty > MaxDifficulty || len(p.Openings) != Challenges {
		return false
	}
	for i, sibs := range p.Openings {
		if len(sibs) != difficulty {
			return false
		}
		leaf := challenge(h, chi, p.Root, i, difficulty)
		var lefts []types.Hash256
		for d := 1; d <= difficulty; d++ {
			if (leaf>>(difficulty-d))&1 == 1 {
				lefts = append(lefts, sibs[d-1])
			}
		}
		cur := label(h, chi, node{uint8(difficulty), leaf}, lefts...)
		for d := difficulty; d >= 1; d-- {
			parent := node{uint8(d - 1), leaf >> (difficulty - d + 1)}
			if (leaf>>(difficulty-d))&1 == 0 {
				cur = label(h, chi, parent, cur, sibs[d-1])
			} else {
				cur = label(h, chi, parent, sibs[d-1], cur)
			}
		}
		if cur != p.Root {
			return false
		}
	}
	return true
}

// EncodeTo implements types.EncoderTo.
func (p Proof) EncodeTo(e *types.Encoder) {
	p.Root.EncodeTo(e)
	e.WritePrefix(len(p.Openings))
	for _, sibs := range p.Openings {
		types.EncodeSlice(e, sibs)
	}
}

// DecodeFrom implements types.DecoderFrom.
func (p *Proof) DecodeFrom(d *types.Decoder) {
	p.Root.DecodeFrom(d)
	n := d.ReadPrefix()
	if n > Challenges {
		d.SetErr(fmt.Errorf("proof has too many openings (%v)", n))
		return
	}
	p.Openings = make([][]types.Hash256, n)
	for i := range p.Openings {
		types.DecodeSlice(d, &p.Openings[i])
		if len(p.Openings[i]) > MaxDifficulty {
			d.SetErr(errors.New("opening is too long"))
			return
		}
	}
}

// Bytes returns the canonical encoding of p.
func (p Proof) Bytes() []byte { return types.EncodeBytes(p) }

// ProofFromBytes decodes a proof.
func ProofFromBytes(b []byte) (p Proof, err error) {
	err = types.DecodeBytes(b, &p)
	return
}
