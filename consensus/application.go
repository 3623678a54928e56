package consensus

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.melnet.tech/stf/internal/overlay"
	"go.melnet.tech/stf/melvm"
	"go.melnet.tech/stf/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errHandleCommitted = errors.New("state handle has already been committed")

// An Option configures a StateHandle.
type Option func(*StateHandle)

// WithLogger sets the logger used by a StateHandle.
func WithLogger(l *zap.Logger) Option {
	return func(h *StateHandle) { h.log = l }
}

// WithWorkers sets the number of transactions a StateHandle processes
// concurrently. The default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(h *StateHandle) {
		if n > 0 {
			h.workers = n
		}
	}
}

// A StateHandle accumulates the effects of transaction batches on a State
// without modifying it. Changes become visible only when the handle is
// committed, so a handle that fails to apply a batch can simply be discarded.
type StateHandle struct {
	state   *State
	log     *zap.Logger
	workers int

	coins  *overlay.Map[types.CoinID, types.CoinDataHeight]
	txns   *overlay.Map[types.TxHash, types.Transaction]
	stakes *overlay.Map[types.TxHash, types.StakeDoc]

	feePool types.CoinValue
	tips    types.CoinValue

	mu        sync.Mutex // protects doscSpeed
	doscSpeed uint64

	err error
}

func coinIDShard(id types.CoinID) uint64 {
	return binary.LittleEndian.Uint64(id.TxHash[:8]) ^ uint64(id.Index)
}

func txHashShard(h types.TxHash) uint64 {
	return binary.LittleEndian.Uint64(h[:8])
}

func compareTxHash(a, b types.TxHash) int {
	return bytes.Compare(a[:], b[:])
}

// NewStateHandle returns a handle on s.
func NewStateHandle(s *State, opts ...Option) *StateHandle {
	h := &StateHandle{
		state:     s,
		log:       zap.NewNop(),
		workers:   runtime.GOMAXPROCS(0),
		coins:     overlay.New(coinIDShard, s.Store.Coin),
		txns:      overlay.New(txHashShard, s.Store.Transaction),
		stakes:    overlay.New(txHashShard, s.Store.Stake),
		feePool:   s.FeePool,
		tips:      s.Tips,
		doscSpeed: s.DoscSpeed,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Err returns the error that invalidated the handle, if any.
func (h *StateHandle) Err() error { return h.err }

// ApplyTxBatch applies txns to the handle. If any transaction is invalid, the
// returned error describes the first failure detected, and the handle must be
// discarded: every subsequent call returns the same error.
func (h *StateHandle) ApplyTxBatch(txns []types.Transaction) error {
	if h.err != nil {
		return h.err
	}
	start := time.Now()
	if err := h.applyBatch(txns); err != nil {
		h.err = err
		return err
	}
	h.log.Debug("applied batch",
		zap.Uint64("height", h.state.Height),
		zap.Int("txns", len(txns)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (h *StateHandle) applyBatch(txns []types.Transaction) error {
	// admission and fees are order-dependent, so they run sequentially
	for i := range txns {
		if err := h.admitTx(&txns[i]); err != nil {
			return fmt.Errorf("transaction %v: %w", txns[i].HashNoSigs(), err)
		}
	}
	if err := h.forEachTx(txns, func(txn *types.Transaction) error {
		if txn.Kind == types.TxKindNormal || txn.Kind == types.TxKindFaucet {
			return nil
		}
		return h.applyTxSpecial(txn)
	}); err != nil {
		return err
	}
	if err := h.forEachTx(txns, func(txn *types.Transaction) error {
		h.applyTxOutputs(txn)
		return nil
	}); err != nil {
		return err
	}
	lastHeader := h.state.lastHeader()
	return h.forEachTx(txns, func(txn *types.Transaction) error {
		return h.applyTxInputs(txn, lastHeader)
	})
}

// forEachTx calls fn on every transaction in txns concurrently, returning the
// first error. Remaining transactions are skipped once an error occurs.
func (h *StateHandle) forEachTx(txns []types.Transaction, fn func(*types.Transaction) error) error {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(h.workers)
	for i := range txns {
		txn := &txns[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := fn(txn); err != nil {
				return fmt.Errorf("transaction %v: %w", txn.HashNoSigs(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// FaucetDedupCoinID returns the ID of the marker coin that prevents the faucet
// transaction with the given hash from being applied twice.
func FaucetDedupCoinID(txid types.TxHash) types.CoinID {
	return types.CoinID{TxHash: types.TxHash(types.HashKeyed([]byte("fdp"), txid[:]))}
}

func (h *StateHandle) admitTx(txn *types.Transaction) error {
	txid := txn.HashNoSigs()
	if txn.Kind == types.TxKindFaucet {
		pc := FaucetDedupCoinID(txid)
		if _, ok := h.coins.Get(pc); ok {
			return ErrDuplicateTx
		}
		h.coins.Set(pc, types.CoinDataHeight{CoinData: types.CoinData{Denom: types.DenomMel}})
	}
	if !txn.IsWellFormed() {
		return ErrMalformedTx
	} else if txn.Kind == types.TxKindFaucet && h.state.Network.ID == types.NetIDMainnet {
		return ErrUnbalancedInOut
	}
	h.txns.Set(txid, *txn)
	return h.applyTxFees(txn)
}

func (h *StateHandle) applyTxFees(txn *types.Transaction) error {
	minFee := MinFee(txn, h.state.FeeMultiplier)
	if txn.Fee.Cmp(minFee) < 0 {
		return &InsufficientFeesError{Required: minFee}
	}
	h.tips = h.tips.SaturatingAdd(txn.Fee.Sub(minFee))
	h.feePool = h.feePool.SaturatingAdd(minFee)
	return nil
}

func (h *StateHandle) applyTxSpecial(txn *types.Transaction) error {
	switch txn.Kind {
	case types.TxKindDoscMint:
		return h.validateDoscMint(txn)
	case types.TxKindStake:
		return h.validateStake(txn)
	default:
		return nil
	}
}

func (h *StateHandle) applyTxOutputs(txn *types.Transaction) {
	txid := txn.HashNoSigs()
	for i, out := range txn.Outputs {
		if out.Denom == types.DenomNewCoin {
			out.Denom = types.CustomDenom(txid)
		}
		if out.CovHash == types.CoinDestroyAddress {
			continue
		}
		h.coins.Set(types.CoinID{TxHash: txid, Index: uint8(i)}, types.CoinDataHeight{
			CoinData: out,
			Height:   h.state.Height,
		})
	}
}

// coinLocked reports whether the outputs of txid are locked by a stake that
// has not yet expired.
func (h *StateHandle) coinLocked(txid types.TxHash) bool {
	sd, ok := h.stakes.Get(txid)
	return ok && h.state.Epoch() < sd.EPostEnd
}

func (h *StateHandle) applyTxInputs(txn *types.Transaction, lastHeader types.Header) error {
	covenants := txn.CovenantsAsMap()
	inputs := make(map[types.Denom]types.CoinValue)
	checked := make(map[types.Address]bool)
	for i, id := range txn.Inputs {
		if h.coinLocked(id.TxHash) {
			return ErrCoinLocked
		}
		cdh, ok := h.coins.Take(id)
		if !ok {
			return &NonexistentCoinError{ID: id}
		}
		h.log.Debug("spending coin", zap.Stringer("id", id), zap.Stringer("covhash", cdh.CoinData.CovHash))
		covhash := cdh.CoinData.CovHash
		if !checked[covhash] {
			c, ok := covenants[covhash]
			if !ok {
				return &NonexistentScriptError{Hash: covhash}
			}
			env := melvm.CovenantEnv{
				ParentID:     id,
				ParentCDH:    cdh,
				SpenderIndex: uint8(i),
				Height:       h.state.Height,
				LastHeader:   lastHeader,
			}
			if !melvm.Covenant(c).Check(txn, env) {
				return &ViolatesScriptError{Hash: covhash}
			}
			checked[covhash] = true
		}
		d := cdh.CoinData.Denom
		inputs[d] = inputs[d].SaturatingAdd(cdh.CoinData.Value)
	}
	if txn.Kind == types.TxKindFaucet {
		return nil
	}
	return h.checkBalance(txn, inputs)
}

// checkBalance compares the inputs of txn against its outputs in every
// denomination that appears on either side.
func (h *StateHandle) checkBalance(txn *types.Transaction, inputs map[types.Denom]types.CoinValue) error {
	outputs := txn.TotalOutputs()
	all := make(map[types.Denom]struct{}, len(inputs)+len(outputs))
	for d := range inputs {
		all[d] = struct{}{}
	}
	for d := range outputs {
		all[d] = struct{}{}
	}
	for _, d := range types.SortedDenoms(all) {
		if d == types.DenomNewCoin || (txn.Kind == types.TxKindDoscMint && d == types.DenomErg) {
			continue
		}
		if in, out := inputs[d], outputs[d]; in != out {
			h.log.Warn("unbalanced transaction",
				zap.Stringer("denom", d),
				zap.Stringer("in", in),
				zap.Stringer("out", out))
			return ErrUnbalancedInOut
		}
	}
	return nil
}

// Commit writes the handle's changes to the underlying State. It panics if the
// handle has failed to apply a batch.
func (h *StateHandle) Commit() {
	if h.err != nil {
		panic(fmt.Errorf("consensus: commit of invalid state handle: %w", h.err))
	}
	s := h.state
	tip906 := s.tip906()
	start := time.Now()
	coins := h.coins.Entries(types.CoinID.Compare)
	for _, e := range coins {
		insertStart := time.Now()
		if e.Deleted {
			s.Store.RemoveCoin(e.Key, tip906)
		} else {
			s.Store.InsertCoin(e.Key, e.Value, tip906)
		}
		if d := time.Since(insertStart); d > 10*time.Millisecond {
			h.log.Warn("slow coin commit", zap.Stringer("id", e.Key), zap.Duration("elapsed", d))
		}
	}
	h.log.Debug("committed coins",
		zap.Uint64("height", s.Height),
		zap.Int("coins", len(coins)),
		zap.Duration("elapsed", time.Since(start)))

	for _, e := range h.txns.Entries(compareTxHash) {
		s.Store.InsertTransaction(e.Value)
	}
	for _, e := range h.stakes.Entries(compareTxHash) {
		s.Store.InsertStake(e.Key, e.Value)
	}
	s.FeePool = h.feePool
	s.Tips = h.tips
	h.mu.Lock()
	s.DoscSpeed = h.doscSpeed
	h.mu.Unlock()
	h.log.Debug("committed state", zap.Uint64("height", s.Height), zap.Duration("elapsed", time.Since(start)))
	h.err = errHandleCommitted
}
