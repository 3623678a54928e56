// Package walletutil implements an ephemeral wallet and txpool useful for
// testing.
package walletutil

import (
	"errors"
	"sort"
	"sync"

	"go.melnet.tech/stf/melvm"
	"go.melnet.tech/stf/types"
	"go.melnet.tech/stf/wallet"
)

// An EphemeralWallet is an in-memory wallet owning the coins locked to the
// standard covenant of a single key.
type EphemeralWallet struct {
	privKey types.PrivateKey

	mu      sync.Mutex
	unspent map[types.CoinID]types.CoinDataHeight
	spent   map[types.CoinID]bool
}

// Covenant returns the covenant locking the wallet's coins.
func (w *EphemeralWallet) Covenant() melvm.Covenant {
	return wallet.StandardCovenant(w.privKey.PublicKey())
}

// Address returns the address of the wallet.
func (w *EphemeralWallet) Address() types.Address {
	return wallet.StandardAddress(w.privKey.PublicKey())
}

// AddCoin adds a coin created outside of any transaction, such as the
// genesis coin or a proposer reward, if it belongs to the wallet.
func (w *EphemeralWallet) AddCoin(id types.CoinID, cdh types.CoinDataHeight) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cdh.CoinData.CovHash == w.Address() {
		w.unspent[id] = cdh
	}
}

// ProcessTransactions updates the wallet with a batch of transactions that
// was applied at the given height.
func (w *EphemeralWallet) ProcessTransactions(txns []types.Transaction, height uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	addr := w.Address()
	for _, txn := range txns {
		// remove any spent coins
		for _, id := range txn.Inputs {
			delete(w.unspent, id)
			delete(w.spent, id)
		}
		// add any new coins
		txid := txn.HashNoSigs()
		for i, out := range txn.Outputs {
			if out.CovHash != addr {
				continue
			} else if out.Denom == types.DenomNewCoin {
				out.Denom = types.CustomDenom(txid)
			}
			w.unspent[txn.OutputCoinID(i)] = types.CoinDataHeight{CoinData: out, Height: height}
		}
	}
}

// Balance returns the balance of all unspent coins of the wallet in the
// given denomination.
func (w *EphemeralWallet) Balance(denom types.Denom) (balance types.CoinValue) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, cdh := range w.unspent {
		if w.spent[id] || cdh.CoinData.Denom != denom {
			continue
		}
		balance = balance.SaturatingAdd(cdh.CoinData.Value)
	}
	return
}

// FundTransaction adds inputs worth at least amount of denom to txn, plus a
// change output if necessary. The returned function releases the inputs
// for use in other transactions.
func (w *EphemeralWallet) FundTransaction(txn *types.Transaction, amount types.CoinValue, denom types.Denom) ([]types.CoinID, func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]types.CoinID, 0, len(w.unspent))
	for id, cdh := range w.unspent {
		if !w.spent[id] && cdh.CoinData.Denom == denom {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })

	var added []types.CoinID
	var input types.CoinValue
	for _, id := range ids {
		if input.Cmp(amount) >= 0 {
			break
		}
		added = append(added, id)
		input = input.Add(w.unspent[id].CoinData.Value)
	}
	if input.Cmp(amount) < 0 {
		return nil, nil, errors.New("not enough funds")
	}
	for _, id := range added {
		w.spent[id] = true
	}
	txn.Inputs = append(txn.Inputs, added...)
	if input.Cmp(amount) > 0 {
		txn.Outputs = append(txn.Outputs, types.CoinData{
			CovHash: w.Address(),
			Value:   input.Sub(amount),
			Denom:   denom,
		})
	}
	return added, func() {
		// cleanup the added coins
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, id := range added {
			delete(w.spent, id)
		}
	}, nil
}

// SignTransaction attaches the wallet's covenant to txn, if missing, and
// signs it. The standard covenant checks the first signature, so the
// wallet's signature is placed first.
func (w *EphemeralWallet) SignTransaction(txn *types.Transaction) {
	c := w.Covenant()
	if _, ok := txn.CovenantsAsMap()[c.Hash()]; !ok {
		txn.Covenants = append(txn.Covenants, c)
	}
	h := txn.HashNoSigs()
	txn.Sigs = append([][]byte{w.privKey.SignMessage(h[:])}, txn.Sigs...)
}

// NewEphemeralWallet creates a new, empty ephemeral wallet.
func NewEphemeralWallet(privKey types.PrivateKey) *EphemeralWallet {
	return &EphemeralWallet{
		privKey: privKey,
		unspent: make(map[types.CoinID]types.CoinDataHeight),
		spent:   make(map[types.CoinID]bool),
	}
}
