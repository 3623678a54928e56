package types

import (
	"testing"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/frand"
)

func TestHashKeyed(t *testing.T) {
	data := frand.Bytes(100)
	k1, k2 := []byte("fdp"), []byte("other")
	if HashKeyed(k1, data) == HashKeyed(k2, data) {
		t.Fatal("different keys produced the same hash")
	} else if HashKeyed(k1, data) != HashKeyed(k1, data) {
		t.Fatal("keyed hash is not deterministic")
	} else if HashKeyed(k1, data) == HashBytes(data) {
		t.Fatal("keyed hash equals unkeyed hash")
	}

	// keys longer than blake2b's 64-byte limit must still work
	long := frand.Bytes(1000)
	_ = HashKeyed(long, data)
}

func TestHashObject(t *testing.T) {
	id := CoinID{Index: 9}
	frand.Read(id.TxHash[:])
	if HashObject(id) != Hash256(blake2b.Sum256(EncodeBytes(id))) {
		t.Fatal("HashObject does not match hash of encoding")
	}
}
