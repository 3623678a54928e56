package types_test

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"go.melnet.tech/stf/types"
	"lukechampine.com/frand"
)

func randomTxn() types.Transaction {
	txn := types.Transaction{
		Kind: types.TxKindNormal,
		Fee:  types.NewCoinValue64(frand.Uint64n(1e9)),
		Data: frand.Bytes(frand.Intn(64)),
	}
	for i := 0; i < 1+frand.Intn(4); i++ {
		var id types.CoinID
		frand.Read(id.TxHash[:])
		id.Index = uint8(frand.Intn(256))
		txn.Inputs = append(txn.Inputs, id)
	}
	for i := 0; i < 1+frand.Intn(4); i++ {
		out := types.CoinData{
			Value:          types.NewCoinValue64(frand.Uint64n(1e12)),
			Denom:          types.DenomMel,
			AdditionalData: frand.Bytes(frand.Intn(8)),
		}
		frand.Read(out.CovHash[:])
		txn.Outputs = append(txn.Outputs, out)
	}
	txn.Covenants = [][]byte{frand.Bytes(16)}
	txn.Sigs = [][]byte{frand.Bytes(64)}
	return txn
}

func TestEncodeSlice(t *testing.T) {
	txns := []types.Transaction{randomTxn(), randomTxn(), randomTxn()}
	var buf bytes.Buffer
	e := types.NewEncoder(&buf)
	types.EncodeSlice(e, txns)
	e.Flush()

	var txns2 []types.Transaction
	d := types.NewBufDecoder(buf.Bytes())
	types.DecodeSlice(d, &txns2)
	if err := d.Err(); err != nil {
		t.Fatal(err)
	} else if fmt.Sprint(txns) != fmt.Sprint(txns2) {
		t.Fatal("mismatch:", txns, txns2)
	}
}

func TestDecodeBytesTrailing(t *testing.T) {
	id := types.CoinID{Index: 3}
	frand.Read(id.TxHash[:])
	b := types.EncodeBytes(id)

	var id2 types.CoinID
	if err := types.DecodeBytes(b, &id2); err != nil {
		t.Fatal(err)
	} else if id2 != id {
		t.Fatalf("mismatch: %v != %v", id, id2)
	}
	if err := types.DecodeBytes(append(b, 0), &id2); err == nil {
		t.Fatal("expected trailing byte to be rejected")
	}
	if err := types.DecodeBytes(b[:len(b)-1], &id2); err == nil {
		t.Fatal("expected truncated encoding to be rejected")
	}
}

func TestDecodeInvalidPrefix(t *testing.T) {
	// a length prefix larger than the stream must not allocate
	b := types.EncodeBytes(types.EncoderFunc(func(e *types.Encoder) {
		e.WritePrefix(1 << 40)
	}))
	d := types.NewBufDecoder(b)
	if got := d.ReadBytes(); len(got) != 0 || d.Err() == nil {
		t.Fatal("expected invalid prefix error")
	}
}

func TestDenomEncoding(t *testing.T) {
	var h types.TxHash
	frand.Read(h[:])
	for _, dn := range []types.Denom{types.DenomMel, types.DenomSym, types.DenomErg, types.DenomNewCoin, types.CustomDenom(h)} {
		var dn2 types.Denom
		if err := types.DecodeBytes(types.EncodeBytes(dn), &dn2); err != nil {
			t.Fatal(err)
		} else if dn != dn2 {
			t.Fatalf("mismatch: %v != %v", dn, dn2)
		}
	}
	if err := types.DecodeBytes([]byte{0x7f}, new(types.Denom)); err == nil {
		t.Fatal("expected unknown denomination kind to be rejected")
	}
}

func TestTransactionEncoding(t *testing.T) {
	txn := randomTxn()
	var txn2 types.Transaction
	if err := types.DecodeBytes(types.EncodeBytes(txn), &txn2); err != nil {
		t.Fatal(err)
	} else if !reflect.DeepEqual(txn, txn2) {
		t.Fatalf("mismatch:\n%v\n%v", txn, txn2)
	}
}

func TestHeaderEncoding(t *testing.T) {
	h := types.Header{
		Network:       types.NetIDMainnet,
		Height:        frand.Uint64n(1e9),
		FeePool:       types.NewCoinValue(frand.Uint64n(1e9), 7),
		FeeMultiplier: 1 << 16,
		DoscSpeed:     frand.Uint64n(1e9),
	}
	frand.Read(h.Previous[:])
	frand.Read(h.CoinsHash[:])
	var h2 types.Header
	if err := types.DecodeBytes(types.EncodeBytes(h), &h2); err != nil {
		t.Fatal(err)
	} else if h != h2 {
		t.Fatalf("mismatch: %+v != %+v", h, h2)
	} else if h.Hash() != h2.Hash() {
		t.Fatal("hash mismatch")
	}
}
