package store

import (
	"encoding/binary"

	"go.melnet.tech/stf/consensus"
	"go.melnet.tech/stf/types"
)

var coinCountPrefix = []byte("coin_count")

func coinCountKey(addr types.Address) []byte {
	return append(append([]byte(nil), coinCountPrefix...), addr[:]...)
}

func heightKey(height uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, height)
}

// A Ledger stores the coins, transactions, stakes, and header history of one
// ledger state, each in its own Mapping over a shared CAS. It implements
// consensus.Store.
type Ledger struct {
	cas     *CAS
	coins   Mapping
	txns    Mapping
	stakes  Mapping
	history Mapping
}

// Coin implements consensus.Store.
func (l *Ledger) Coin(id types.CoinID) (cdh types.CoinDataHeight, ok bool) {
	b, ok := l.coins.Get(types.EncodeBytes(id))
	if !ok {
		return types.CoinDataHeight{}, false
	}
	check(types.DecodeBytes(b, &cdh))
	return cdh, true
}

// InsertCoin implements consensus.Store. After TIP-906, the number of coins
// held by each covenant hash is tracked alongside the coins themselves.
func (l *Ledger) InsertCoin(id types.CoinID, cdh types.CoinDataHeight, tip906 bool) {
	key := types.EncodeBytes(id)
	if tip906 {
		if _, exists := l.coins.Get(key); !exists {
			l.addCoinCount(cdh.CoinData.CovHash, 1)
		}
	}
	l.coins.Insert(key, types.EncodeBytes(cdh))
}

// RemoveCoin implements consensus.Store.
func (l *Ledger) RemoveCoin(id types.CoinID, tip906 bool) {
	key := types.EncodeBytes(id)
	if tip906 {
		cdh, ok := l.Coin(id)
		if !ok {
			return
		}
		l.addCoinCount(cdh.CoinData.CovHash, -1)
	}
	l.coins.Delete(key)
}

func (l *Ledger) addCoinCount(addr types.Address, delta int) {
	n := l.CoinCount(addr)
	switch {
	case delta > 0:
		n++
	case n > 0:
		n--
	}
	key := coinCountKey(addr)
	if n == 0 {
		l.coins.Delete(key)
		return
	}
	l.coins.Insert(key, binary.LittleEndian.AppendUint64(nil, n))
}

// CoinCount returns the number of coins held by addr that were created or
// spent under TIP-906 accounting.
func (l *Ledger) CoinCount(addr types.Address) uint64 {
	b, ok := l.coins.Get(coinCountKey(addr))
	if !ok || len(b) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Transaction implements consensus.Store.
func (l *Ledger) Transaction(h types.TxHash) (txn types.Transaction, ok bool) {
	b, ok := l.txns.Get(h[:])
	if !ok {
		return types.Transaction{}, false
	}
	check(types.DecodeBytes(b, &txn))
	return txn, true
}

// InsertTransaction implements consensus.Store.
func (l *Ledger) InsertTransaction(txn types.Transaction) {
	h := txn.HashNoSigs()
	l.txns.Insert(h[:], types.EncodeBytes(txn))
}

// ClearTransactions implements consensus.Store.
func (l *Ledger) ClearTransactions() {
	l.txns = NewMapping(l.cas, types.Hash256{})
}

// Stake implements consensus.Store.
func (l *Ledger) Stake(h types.TxHash) (sd types.StakeDoc, ok bool) {
	b, ok := l.stakes.Get(h[:])
	if !ok {
		return types.StakeDoc{}, false
	}
	check(types.DecodeBytes(b, &sd))
	return sd, true
}

// InsertStake implements consensus.Store.
func (l *Ledger) InsertStake(h types.TxHash, sd types.StakeDoc) {
	l.stakes.Insert(h[:], types.EncodeBytes(sd))
}

// Header implements consensus.Store.
func (l *Ledger) Header(height uint64) (h types.Header, ok bool) {
	b, ok := l.history.Get(heightKey(height))
	if !ok {
		return types.Header{}, false
	}
	check(types.DecodeBytes(b, &h))
	return h, true
}

// InsertHeader implements consensus.Store.
func (l *Ledger) InsertHeader(h types.Header) {
	l.history.Insert(heightKey(h.Height), types.EncodeBytes(h))
}

// Roots implements consensus.Store.
func (l *Ledger) Roots() consensus.Roots {
	return consensus.Roots{
		Coins:        l.coins.Root(),
		Transactions: l.txns.Root(),
		Stakes:       l.stakes.Root(),
		History:      l.history.Root(),
	}
}

// Fork implements consensus.Store. The returned Ledger shares the CAS but none
// of the receiver's subsequent changes.
func (l *Ledger) Fork() consensus.Store {
	l2 := *l
	return &l2
}

// Flush makes the Ledger's nodes durable. A Ledger can be reopened from its
// Roots after a flush.
func (l *Ledger) Flush() error {
	return l.cas.Flush()
}

// NewLedger returns an empty Ledger whose nodes are stored in cas.
func NewLedger(cas *CAS) *Ledger {
	return OpenLedger(cas, consensus.Roots{})
}

// OpenLedger returns the Ledger with the given roots.
func OpenLedger(cas *CAS, roots consensus.Roots) *Ledger {
	return &Ledger{
		cas:     cas,
		coins:   NewMapping(cas, roots.Coins),
		txns:    NewMapping(cas, roots.Transactions),
		stakes:  NewMapping(cas, roots.Stakes),
		history: NewMapping(cas, roots.History),
	}
}
