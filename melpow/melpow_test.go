package melpow

import (
	"testing"

	"go.melnet.tech/stf/types"
	"lukechampine.com/frand"
)

func TestProofRoundTrip(t *testing.T) {
	chi := frand.Bytes(32)
	for _, h := range []HashFunction{LegacyHash, SHA3Hash} {
		for _, difficulty := range []int{0, 1, 5, 10} {
			p := Generate(chi, difficulty, h)
			if !p.Verify(chi, difficulty, h) {
				t.Fatalf("valid proof (difficulty %v) rejected", difficulty)
			}
			p2, err := ProofFromBytes(p.Bytes())
			if err != nil {
				t.Fatal(err)
			} else if !p2.Verify(chi, difficulty, h) {
				t.Fatal("decoded proof rejected")
			}
		}
	}
}

func TestProofRejects(t *testing.T) {
	chi := frand.Bytes(32)
	p := Generate(chi, 8, LegacyHash)

	if p.Verify(frand.Bytes(32), 8, LegacyHash) {
		t.Fatal("proof verified against a different seed")
	} else if p.Verify(chi, 9, LegacyHash) || p.Verify(chi, 7, LegacyHash) {
		t.Fatal("proof verified at a different difficulty")
	} else if p.Verify(chi, 8, SHA3Hash) {
		t.Fatal("proof verified under a different hash function")
	}

	tampered := p
	tampered.Openings = append([][]types.Hash256(nil), p.Openings...)
	sibs := append([]types.Hash256(nil), p.Openings[17]...)
	sibs[3][0] ^= 1
	tampered.Openings[17] = sibs
	if tampered.Verify(chi, 8, LegacyHash) {
		t.Fatal("tampered proof verified")
	}

	tampered = p
	tampered.Root[0] ^= 1
	if tampered.Verify(chi, 8, LegacyHash) {
		t.Fatal("proof with wrong root verified")
	}

	tampered = p
	tampered.Openings = p.Openings[:Challenges-1]
	if tampered.Verify(chi, 8, LegacyHash) {
		t.Fatal("proof with missing openings verified")
	}

	if _, err := ProofFromBytes(append(p.Bytes(), 0)); err == nil {
		t.Fatal("expected trailing bytes to be rejected")
	} else if _, err := ProofFromBytes(frand.Bytes(100)); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
}
