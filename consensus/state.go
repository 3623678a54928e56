// Package consensus implements the ledger's state-transition function: the
// rules that decide whether a batch of transactions may be applied to a state,
// and the state that results.
package consensus

import (
	"bytes"
	"sort"

	"go.melnet.tech/stf/types"
)

// State represents the ledger as of a particular height, before that height
// is sealed. Its Store is mutated when transactions are applied; use Fork to
// obtain an independent copy.
type State struct {
	Network *Network `json:"-"`

	Height        uint64          `json:"height"`
	FeePool       types.CoinValue `json:"feePool"`
	FeeMultiplier uint64          `json:"feeMultiplier"`
	Tips          types.CoinValue `json:"tips"`
	// DoscSpeed is the highest mint speed observed in the current epoch.
	DoscSpeed uint64 `json:"doscSpeed"`

	Store Store `json:"-"`
}

// Epoch returns the staking epoch of the state's height.
func (s *State) Epoch() uint64 { return s.Height / StakeEpoch }

func (s *State) tip906() bool { return s.Height >= s.Network.Tip906.Height }

func (s *State) tip910() bool { return s.Height >= s.Network.Tip910.Height }

// Fork returns a copy of s whose Store shares no subsequent changes with s.
func (s *State) Fork() *State {
	s2 := *s
	s2.Store = s.Store.Fork()
	return &s2
}

// ApplyTx applies a single transaction to s. On error, s is unchanged.
func (s *State) ApplyTx(txn types.Transaction, opts ...Option) error {
	return s.ApplyTxBatch([]types.Transaction{txn}, opts...)
}

// ApplyTxBatch applies txns to s, atomically: either every transaction is
// applied, or an error is returned and s is unchanged.
func (s *State) ApplyTxBatch(txns []types.Transaction, opts ...Option) error {
	h := NewStateHandle(s, opts...)
	if err := h.ApplyTxBatch(txns); err != nil {
		return err
	}
	h.Commit()
	return nil
}

// lastHeader returns the header that spends at this height are evaluated
// against: the most recently sealed header, or, at genesis, the header this
// state would seal to.
func (s *State) lastHeader() types.Header {
	if s.Height > 0 {
		if h, ok := s.Store.Header(s.Height - 1); ok {
			return h
		}
	}
	return s.header()
}

func (s *State) header() types.Header {
	roots := s.Store.Roots()
	var prev types.Hash256
	if s.Height > 0 {
		if h, ok := s.Store.Header(s.Height - 1); ok {
			prev = h.Hash()
		}
	}
	return types.Header{
		Network:          s.Network.ID,
		Previous:         prev,
		Height:           s.Height,
		HistoryHash:      roots.History,
		CoinsHash:        roots.Coins,
		TransactionsHash: roots.Transactions,
		FeePool:          s.FeePool,
		FeeMultiplier:    s.FeeMultiplier,
		DoscSpeed:        s.DoscSpeed,
		StakesHash:       roots.Stakes,
	}
}

// A ProposerAction is the block proposer's contribution to sealing: a vote on
// the fee multiplier, and the destination of the proposer's reward.
type ProposerAction struct {
	// FeeMultiplierDelta moves the fee multiplier by up to one step in
	// either direction; 127 is a full step up, -128 a full step down.
	FeeMultiplierDelta int8          `json:"feeMultiplierDelta"`
	RewardDest         types.Address `json:"rewardDest"`
}

// ProposerRewardCoinID returns the ID of the coin paying the proposer of the
// block at the given height.
func ProposerRewardCoinID(height uint64) types.CoinID {
	h := types.HashKeyed([]byte("reward_coin_pseudoid"), types.EncodeBytes(types.EncoderFunc(func(e *types.Encoder) {
		e.WriteUint64(height)
	})))
	return types.CoinID{TxHash: types.TxHash(h)}
}

func (s *State) adjustFeeMultiplier(delta int8) uint64 {
	m := s.FeeMultiplier
	step := m >> 7
	if s.Height >= s.Network.Tip901.Height {
		step = m >> 10
	}
	if step == 0 {
		step = 1
	}
	if delta >= 0 {
		change := step * uint64(delta) / 128
		if m+change < m {
			return ^uint64(0)
		}
		return m + change
	}
	change := step * uint64(-int(delta)) / 128
	if change >= m {
		return 1
	}
	return m - change
}

// A SealedState is a State that no longer accepts transactions, along with
// the header committing to it.
type SealedState struct {
	state  *State
	header types.Header
}

// Header returns the header of the sealed state.
func (ss SealedState) Header() types.Header { return ss.header }

// State returns a copy of the sealed state.
func (ss SealedState) State() *State { return ss.state.Fork() }

// NextState returns the empty state at the next height, whose history
// includes the sealed header.
func (ss SealedState) NextState() *State {
	next := ss.state.Fork()
	next.Store.InsertHeader(ss.header)
	next.Store.ClearTransactions()
	next.Height++
	next.FeePool = next.FeePool.SaturatingAdd(next.Tips)
	next.Tips = types.ZeroCoinValue
	if next.Height%StakeEpoch == 0 {
		next.DoscSpeed = 0
	}
	return next
}

// Seal finalizes the state at its height. If action is non-nil, the fee
// multiplier is adjusted and the proposer is paid the accumulated tips plus
// a fraction of the fee pool. s itself is not modified.
func (s *State) Seal(action *ProposerAction) SealedState {
	sealed := s.Fork()
	if action != nil {
		sealed.FeeMultiplier = s.adjustFeeMultiplier(action.FeeMultiplierDelta)
		base := sealed.FeePool.Rsh(16)
		sealed.FeePool = sealed.FeePool.Sub(base)
		reward := base.SaturatingAdd(sealed.Tips)
		sealed.Tips = types.ZeroCoinValue
		sealed.Store.InsertCoin(ProposerRewardCoinID(s.Height), types.CoinDataHeight{
			CoinData: types.CoinData{
				CovHash: action.RewardDest,
				Value:   reward,
				Denom:   types.DenomMel,
			},
			Height: s.Height,
		}, sealed.tip906())
	}
	return SealedState{state: sealed, header: sealed.header()}
}

// GenesisConfig describes the state at height zero.
type GenesisConfig struct {
	Network *Network `json:"-"`

	// InitCoinData is the content of the single initial coin, whose ID is
	// the zero transaction hash at index zero.
	InitCoinData      types.CoinData                  `json:"initCoinData"`
	Stakes            map[types.TxHash]types.StakeDoc `json:"stakes"`
	InitFeePool       types.CoinValue                 `json:"initFeePool"`
	InitFeeMultiplier uint64                          `json:"initFeeMultiplier"`
}

// Realize builds the genesis state in store, which should be empty.
func (cfg GenesisConfig) Realize(store Store) *State {
	s := &State{
		Network:       cfg.Network,
		FeePool:       cfg.InitFeePool,
		FeeMultiplier: cfg.InitFeeMultiplier,
		Store:         store,
	}
	if s.FeeMultiplier == 0 {
		s.FeeMultiplier = 1
	}
	store.InsertCoin(types.CoinID{}, types.CoinDataHeight{CoinData: cfg.InitCoinData}, s.tip906())

	ids := make([]types.TxHash, 0, len(cfg.Stakes))
	for id := range cfg.Stakes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	for _, id := range ids {
		store.InsertStake(id, cfg.Stakes[id])
	}
	return s
}
