package melvm

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/holiman/uint256"
	"go.melnet.tech/stf/types"
)

// A Value is an item on the VM's stack: an Int, a Bytes, or a Vector.
type Value interface {
	String() string
	isValue()
}

// An Int is a 256-bit unsigned integer. All arithmetic on Ints wraps modulo
// 2^256.
type Int struct {
	uint256.Int
}

// Bytes is a byte string.
type Bytes []byte

// A Vector is an ordered list of values.
type Vector []Value

func (Int) isValue()    {}
func (Bytes) isValue()  {}
func (Vector) isValue() {}

// NewInt returns an Int with value u.
func NewInt(u uint64) Int {
	var i Int
	i.SetUint64(u)
	return i
}

// IntFromCoinValue returns the Int representation of c.
func IntFromCoinValue(c types.CoinValue) Int {
	var i Int
	i.Int[0], i.Int[1] = c.Lo, c.Hi
	return i
}

// String implements fmt.Stringer.
func (i Int) String() string { return i.Dec() }

// String implements fmt.Stringer.
func (b Bytes) String() string { return "0x" + hex.EncodeToString(b) }

// String implements fmt.Stringer.
func (v Vector) String() string {
	strs := make([]string, len(v))
	for i := range v {
		strs[i] = v[i].String()
	}
	return "[" + strings.Join(strs, " ") + "]"
}

// Equal reports whether a and b are the same kind of value with the same
// contents.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Int:
		b, ok := b.(Int)
		return ok && a.Eq(&b.Int)
	case Bytes:
		b, ok := b.(Bytes)
		return ok && bytes.Equal(a, b)
	case Vector:
		b, ok := b.(Vector)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// valueTrue is the canonical true value. A covenant authorizes a spend only
// if it leaves exactly this value on top of the stack.
var valueTrue = NewInt(1)

func boolValue(b bool) Int {
	if b {
		return NewInt(1)
	}
	return NewInt(0)
}

// conversions from ledger types; field order is part of the consensus rules

func hashValue(h [32]byte) Bytes { return Bytes(h[:]) }

func coinIDValue(id types.CoinID) Vector {
	return Vector{hashValue(id.TxHash), NewInt(uint64(id.Index))}
}

func coinDataValue(cd types.CoinData) Vector {
	return Vector{
		hashValue(cd.CovHash),
		IntFromCoinValue(cd.Value),
		Bytes(types.EncodeBytes(cd.Denom)),
		Bytes(cd.AdditionalData),
	}
}

func coinDataHeightValue(cdh types.CoinDataHeight) Vector {
	return Vector{coinDataValue(cdh.CoinData), NewInt(cdh.Height)}
}

// TransactionValue converts txn to the Vector seen by covenants:
//
//	[kind inputs outputs fee covenants data sigs]
func TransactionValue(txn *types.Transaction) Vector {
	inputs := make(Vector, len(txn.Inputs))
	for i, in := range txn.Inputs {
		inputs[i] = coinIDValue(in)
	}
	outputs := make(Vector, len(txn.Outputs))
	for i, out := range txn.Outputs {
		outputs[i] = coinDataValue(out)
	}
	covenants := make(Vector, len(txn.Covenants))
	for i, c := range txn.Covenants {
		covenants[i] = Bytes(c)
	}
	sigs := make(Vector, len(txn.Sigs))
	for i, s := range txn.Sigs {
		sigs[i] = Bytes(s)
	}
	return Vector{
		NewInt(uint64(txn.Kind)),
		inputs,
		outputs,
		IntFromCoinValue(txn.Fee),
		covenants,
		Bytes(txn.Data),
		sigs,
	}
}

// HeaderValue converts h to a Vector, in encoding order.
func HeaderValue(h types.Header) Vector {
	return Vector{
		NewInt(uint64(h.Network)),
		hashValue(h.Previous),
		NewInt(h.Height),
		hashValue(h.HistoryHash),
		hashValue(h.CoinsHash),
		hashValue(h.TransactionsHash),
		IntFromCoinValue(h.FeePool),
		NewInt(h.FeeMultiplier),
		NewInt(h.DoscSpeed),
		hashValue(h.StakesHash),
	}
}
