package consensus

import (
	"go.melnet.tech/stf/types"
)

// A Store holds the persistent, merkleized part of a ledger state: its coins,
// the transactions of the current height, registered stakes, and the headers
// of sealed heights.
//
// Store methods do not return errors. A Store that cannot read or write its
// backing storage is unrecoverable, and should panic.
type Store interface {
	Coin(id types.CoinID) (types.CoinDataHeight, bool)
	// InsertCoin and RemoveCoin take the TIP-906 flag, which selects
	// whether per-covenant coin counts are maintained.
	InsertCoin(id types.CoinID, cdh types.CoinDataHeight, tip906 bool)
	RemoveCoin(id types.CoinID, tip906 bool)

	Transaction(h types.TxHash) (types.Transaction, bool)
	InsertTransaction(txn types.Transaction)
	ClearTransactions()

	Stake(h types.TxHash) (types.StakeDoc, bool)
	InsertStake(h types.TxHash, sd types.StakeDoc)

	Header(height uint64) (types.Header, bool)
	InsertHeader(h types.Header)

	// Roots returns the commitments to the Store's contents.
	Roots() Roots
	// Fork returns a copy of the Store. Changes to either copy are not
	// visible in the other.
	Fork() Store
}

// Roots are the commitments to the contents of a Store.
type Roots struct {
	Coins        types.Hash256 `json:"coins"`
	Transactions types.Hash256 `json:"transactions"`
	Stakes       types.Hash256 `json:"stakes"`
	History      types.Hash256 `json:"history"`
}
