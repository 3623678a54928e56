// Package melvm implements the covenant virtual machine: a stack machine over
// 256-bit unsigned integers, byte strings, and vectors that decides whether a
// coin may be spent.
package melvm

import (
	"go.melnet.tech/stf/types"
)

// A Covenant is the bytecode of a spending script. Coins are locked to the
// hash of a Covenant.
type Covenant []byte

// Hash returns the address of coins locked by c.
func (c Covenant) Hash() types.Address {
	return types.Address(types.HashBytes(c))
}

// Ops decodes the instructions of c.
func (c Covenant) Ops() ([]Op, error) {
	return DecodeOps(c)
}

// FromOps assembles a Covenant from instructions.
func FromOps(ops []Op) (Covenant, error) {
	b, err := EncodeOps(ops)
	if err != nil {
		return nil, err
	}
	return Covenant(b), nil
}

// Weight returns the cost of c used by the fee model: the encoded size plus
// the cost of each instruction, with loop bodies counted once per iteration.
// It does not execute c.
func (c Covenant) Weight() (uint64, error) {
	ops, err := c.Ops()
	if err != nil {
		return 0, err
	} else if err := validateOps(ops, 0, len(ops)); err != nil {
		return 0, err
	}
	return satAdd(uint64(len(c)), opsWeight(ops)), nil
}

// CheckRaw runs c with the given bindings and reports whether it leaves the
// canonical true value on top of the stack. Any fault, including a decoding
// error, denies.
func (c Covenant) CheckRaw(bindings []Value) bool {
	ops, err := c.Ops()
	if err != nil {
		return false
	}
	e, err := NewExecutor(ops, bindings)
	if err != nil {
		return false
	} else if err := e.Run(); err != nil {
		return false
	}
	s := e.Stack()
	return len(s) > 0 && Equal(s[len(s)-1], valueTrue)
}

// Check runs c against txn in the given spend environment.
func (c Covenant) Check(txn *types.Transaction, env CovenantEnv) bool {
	return c.CheckRaw(env.Bindings(txn))
}

// AlwaysTrue returns a covenant that authorizes any spend.
func AlwaysTrue() Covenant {
	c, _ := FromOps([]Op{PushI(1)})
	return c
}

// StdEd25519PK returns the standard single-signature covenant: the first
// signature of the spending transaction must be a valid signature of its hash
// by pk.
func StdEd25519PK(pk types.PublicKey) Covenant {
	c, _ := FromOps([]Op{
		{Code: OpLoadImm, Arg: BindTransaction},
		PushI(6), // sigs
		{Code: OpVRef},
		PushI(0),
		{Code: OpVRef},
		{Code: OpLoadImm, Arg: BindTxHash},
		PushB(pk[:]),
		{Code: OpSigEOk},
	})
	return c
}
