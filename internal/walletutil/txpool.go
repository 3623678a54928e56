package walletutil

import (
	"fmt"
	"sync"

	"go.melnet.tech/stf/consensus"
	"go.melnet.tech/stf/types"
)

// A TxPool stores transactions that will eventually be applied to the
// ledger. Every pooled transaction is valid against the pool's state, in
// the order it was accepted.
type TxPool struct {
	mu    sync.Mutex
	txns  []types.Transaction
	ids   map[types.TxHash]bool
	state *consensus.State
}

// AddTransaction validates a transaction against the pool's state and adds
// it to the pool. The transaction may spend coins created by transactions
// already in the pool.
func (tp *TxPool) AddTransaction(txn types.Transaction) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	txid := txn.HashNoSigs()
	if tp.ids[txid] {
		return nil // already in pool
	}
	if err := tp.state.ApplyTx(txn); err != nil {
		return fmt.Errorf("failed to validate transaction: %w", err)
	}
	tp.txns = append(tp.txns, txn)
	tp.ids[txid] = true
	return nil
}

// AcceptTransactionSet validates a transaction set as a single batch and
// adds it to the pool. Either every transaction is added, or none are.
func (tp *TxPool) AcceptTransactionSet(txns []types.Transaction) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	var add []types.Transaction
	for _, txn := range txns {
		if !tp.ids[txn.HashNoSigs()] {
			add = append(add, txn)
		}
	}
	if err := tp.state.ApplyTxBatch(add); err != nil {
		return fmt.Errorf("failed to validate transaction set: %w", err)
	}
	for _, txn := range add {
		tp.txns = append(tp.txns, txn)
		tp.ids[txn.HashNoSigs()] = true
	}
	return nil
}

// FeeEstimate returns the minimum fee txn must pay to enter the pool.
func (tp *TxPool) FeeEstimate(txn types.Transaction) types.CoinValue {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.state.MinFee(&txn)
}

// Transaction returns the transaction with the specified hash, if it is
// currently in the pool.
func (tp *TxPool) Transaction(id types.TxHash) (types.Transaction, bool) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if !tp.ids[id] {
		return types.Transaction{}, false
	}
	for _, txn := range tp.txns {
		if txn.HashNoSigs() == id {
			return txn, true
		}
	}
	return types.Transaction{}, false
}

// Transactions returns the transactions currently in the pool, parents
// before their children.
func (tp *TxPool) Transactions() []types.Transaction {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return append([]types.Transaction(nil), tp.txns...)
}

// ProcessState replaces the pool's state with s, after confirmed were
// applied and sealed. Confirmed transactions are removed from the pool, and
// the rest are revalidated against s; those no longer valid are dropped.
func (tp *TxPool) ProcessState(s *consensus.State, confirmed []types.Transaction) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	// delete confirmed txns
	for _, txn := range confirmed {
		delete(tp.ids, txn.HashNoSigs())
	}

	// revalidate unconfirmed txns
	tp.state = s.Fork()
	remaining := tp.txns[:0]
	for _, txn := range tp.txns {
		id := txn.HashNoSigs()
		if !tp.ids[id] {
			continue
		} else if err := tp.state.ApplyTx(txn); err != nil {
			delete(tp.ids, id)
			continue
		}
		remaining = append(remaining, txn)
	}
	tp.txns = remaining
}

// NewTxPool creates a new transaction pool on top of s.
func NewTxPool(s *consensus.State) *TxPool {
	return &TxPool{
		ids:   make(map[types.TxHash]bool),
		state: s.Fork(),
	}
}
