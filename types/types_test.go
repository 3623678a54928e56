package types

import (
	"encoding/json"
	"testing"

	"lukechampine.com/frand"
)

func TestHashNoSigs(t *testing.T) {
	txn := Transaction{
		Kind:    TxKindNormal,
		Inputs:  []CoinID{{Index: 1}},
		Outputs: []CoinData{{Value: Coins(1), Denom: DenomMel}},
		Fee:     NewCoinValue64(100),
	}
	h := txn.HashNoSigs()
	key := GeneratePrivateKey()
	txn.SignEd25519(key)
	if txn.HashNoSigs() != h {
		t.Fatal("signatures changed the transaction hash")
	} else if !key.PublicKey().VerifyMessage(h[:], txn.Sigs[0]) {
		t.Fatal("signature does not verify")
	}
	txn.Data = []byte{1}
	if txn.HashNoSigs() == h {
		t.Fatal("payload did not change the transaction hash")
	}
	if id := txn.OutputCoinID(3); id.TxHash != txn.HashNoSigs() || id.Index != 3 {
		t.Fatalf("wrong output id %v", id)
	}
}

func TestTotalOutputs(t *testing.T) {
	var custom TxHash
	frand.Read(custom[:])
	txn := Transaction{
		Fee: NewCoinValue64(7),
		Outputs: []CoinData{
			{Value: NewCoinValue64(10), Denom: DenomMel},
			{Value: NewCoinValue64(5), Denom: DenomSym},
			{Value: NewCoinValue64(3), Denom: DenomMel},
			{Value: MaxUint128, Denom: CustomDenom(custom)},
			{Value: NewCoinValue64(1), Denom: CustomDenom(custom)},
		},
	}
	totals := txn.TotalOutputs()
	if totals[DenomMel] != NewCoinValue64(20) {
		t.Fatalf("mel total = %d, want 20", totals[DenomMel])
	} else if totals[DenomSym] != NewCoinValue64(5) {
		t.Fatalf("sym total = %d, want 5", totals[DenomSym])
	} else if totals[CustomDenom(custom)] != MaxUint128 {
		t.Fatal("custom total did not saturate")
	}

	ds := SortedDenoms(totals)
	if len(ds) != 3 || ds[0] != DenomMel || ds[1] != DenomSym || ds[2] != CustomDenom(custom) {
		t.Fatalf("unexpected denom order %v", ds)
	}
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		desc string
		mod  func(*Transaction)
		ok   bool
	}{
		{"valid", func(*Transaction) {}, true},
		{"too many inputs", func(txn *Transaction) { txn.Inputs = make([]CoinID, MaxInputs+1) }, false},
		{"too many outputs", func(txn *Transaction) { txn.Outputs = make([]CoinData, MaxOutputs+1) }, false},
		{"fee too large", func(txn *Transaction) { txn.Fee = MaxCoinValue.Add(NewCoinValue64(1)) }, false},
		{"fee at max", func(txn *Transaction) { txn.Fee = MaxCoinValue }, true},
		{"output too large", func(txn *Transaction) { txn.Outputs[0].Value = MaxUint128 }, false},
		{"additional data too large", func(txn *Transaction) { txn.Outputs[0].AdditionalData = make([]byte, MaxAdditionalData+1) }, false},
		{"custom denom", func(txn *Transaction) { txn.Outputs[0].Denom = CustomDenom(TxHash{1}) }, true},
		{"fixed denom with hash", func(txn *Transaction) { txn.Outputs[0].Denom = Denom{Kind: DenomKindMel, TxHash: TxHash{1}} }, false},
		{"newcoin denom with hash", func(txn *Transaction) { txn.Outputs[0].Denom = Denom{Kind: DenomKindNewCoin, TxHash: TxHash{1}} }, false},
		{"covenant too large", func(txn *Transaction) { txn.Covenants = [][]byte{make([]byte, MaxCovenantSize+1)} }, false},
	}
	for _, tt := range tests {
		txn := Transaction{
			Inputs:  []CoinID{{}},
			Outputs: []CoinData{{Value: Coins(1)}},
		}
		tt.mod(&txn)
		if got := txn.IsWellFormed(); got != tt.ok {
			t.Errorf("%v: IsWellFormed = %v, want %v", tt.desc, got, tt.ok)
		}
	}
}

func TestCovenantsAsMap(t *testing.T) {
	a, b := frand.Bytes(10), frand.Bytes(20)
	txn := Transaction{Covenants: [][]byte{a, b, a}}
	m := txn.CovenantsAsMap()
	if len(m) != 2 {
		t.Fatalf("expected 2 covenants, got %v", len(m))
	} else if string(m[Address(HashBytes(b))]) != string(b) {
		t.Fatal("covenant not keyed by its hash")
	}
}

func TestTextMarshalling(t *testing.T) {
	var custom TxHash
	frand.Read(custom[:])
	for _, dn := range []Denom{DenomMel, DenomSym, DenomErg, DenomNewCoin, CustomDenom(custom)} {
		js, err := json.Marshal(dn)
		if err != nil {
			t.Fatal(err)
		}
		var dn2 Denom
		if err := json.Unmarshal(js, &dn2); err != nil {
			t.Fatal(err)
		} else if dn != dn2 {
			t.Fatalf("denom round trip: %v != %v", dn, dn2)
		}
	}

	var addr Address
	frand.Read(addr[:])
	addr2, err := ParseAddress(addr.String())
	if err != nil {
		t.Fatal(err)
	} else if addr != addr2 {
		t.Fatal("address round trip failed")
	}
	if _, err := ParseAddress("addr:1234"); err == nil {
		t.Fatal("expected short address to be rejected")
	}
}
