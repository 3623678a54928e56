package walletutil

import (
	"errors"
	"testing"

	"go.melnet.tech/stf/consensus"
	"go.melnet.tech/stf/types"
	"lukechampine.com/frand"
)

func TestTxPool(t *testing.T) {
	w, s := newTestWallet(t)
	tp := NewTxPool(s)

	var addr types.Address
	frand.Read(addr[:])
	parent, _ := sendTxn(t, w, addr, types.Coins(1))
	if err := tp.AddTransaction(parent); err != nil {
		t.Fatal(err)
	} else if err := tp.AddTransaction(parent); err != nil {
		t.Fatal("re-adding a pooled transaction should be a no-op:", err)
	}
	if _, ok := s.Store.Transaction(parent.HashNoSigs()); ok {
		t.Fatal("pool should not modify the state it was created from")
	}

	// a child may spend the parent's change
	w.ProcessTransactions([]types.Transaction{parent}, s.Height)
	child, _ := sendTxn(t, w, addr, types.Coins(1))
	if err := tp.AddTransaction(child); err != nil {
		t.Fatal(err)
	}
	txns := tp.Transactions()
	if len(txns) != 2 || txns[0].HashNoSigs() != parent.HashNoSigs() || txns[1].HashNoSigs() != child.HashNoSigs() {
		t.Fatal("pool transactions should be ordered parents first")
	} else if _, ok := tp.Transaction(child.HashNoSigs()); !ok {
		t.Fatal("child should be in pool")
	}

	// a double spend of the parent's input is rejected
	double := parent
	double.Data = []byte("double")
	var nce *consensus.NonexistentCoinError
	if err := tp.AddTransaction(double); !errors.As(err, &nce) {
		t.Fatalf("expected NonexistentCoinError, got %v", err)
	}

	// confirm the parent only; the child survives revalidation
	if err := s.ApplyTx(parent); err != nil {
		t.Fatal(err)
	}
	next := s.Seal(nil).NextState()
	tp.ProcessState(next, []types.Transaction{parent})
	if txns := tp.Transactions(); len(txns) != 1 || txns[0].HashNoSigs() != child.HashNoSigs() {
		t.Fatal("expected only the child to remain")
	} else if _, ok := tp.Transaction(parent.HashNoSigs()); ok {
		t.Fatal("confirmed transaction should be removed")
	}

	// if the child's input is spent elsewhere, it is dropped
	conflict := child
	conflict.Data = []byte("conflict")
	conflict.Sigs = nil
	w.SignTransaction(&conflict)
	if err := next.ApplyTx(conflict); err != nil {
		t.Fatal(err)
	}
	tp.ProcessState(next.Seal(nil).NextState(), []types.Transaction{conflict})
	if len(tp.Transactions()) != 0 {
		t.Fatal("conflicting transaction should be dropped")
	}
}

func TestTxPoolAcceptSet(t *testing.T) {
	w, s := newTestWallet(t)
	tp := NewTxPool(s)

	var addr types.Address
	frand.Read(addr[:])
	a, _ := sendTxn(t, w, addr, types.Coins(1))
	w.ProcessTransactions([]types.Transaction{a}, s.Height)
	b, _ := sendTxn(t, w, addr, types.Coins(1))

	bad := b
	bad.Fee = types.ZeroCoinValue
	bad.Sigs = nil
	w.SignTransaction(&bad)
	if err := tp.AcceptTransactionSet([]types.Transaction{a, bad}); err == nil {
		t.Fatal("expected unbalanced set to be rejected")
	} else if len(tp.Transactions()) != 0 {
		t.Fatal("rejected set should not be partially added")
	}
	if err := tp.AcceptTransactionSet([]types.Transaction{a, b}); err != nil {
		t.Fatal(err)
	} else if len(tp.Transactions()) != 2 {
		t.Fatal("expected both transactions in pool")
	}

	txn := types.Transaction{Kind: types.TxKindNormal, Data: frand.Bytes(100)}
	if tp.FeeEstimate(txn) != s.MinFee(&txn) {
		t.Fatal("fee estimate should match the state's minimum fee")
	}
}
