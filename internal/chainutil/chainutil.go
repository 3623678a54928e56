package chainutil

import (
	"fmt"

	"go.melnet.tech/stf/consensus"
	"go.melnet.tech/stf/store"
	"go.melnet.tech/stf/types"
	"go.melnet.tech/stf/wallet"
)

// JustHeights returns the heights of headers.
func JustHeights(headers []types.Header) []uint64 {
	hs := make([]uint64, len(headers))
	for i := range hs {
		hs[i] = headers[i].Height
	}
	return hs
}

// JustTransactionIDs returns the hashes of each batch of transactions.
func JustTransactionIDs(batches [][]types.Transaction) [][]types.TxHash {
	ids := make([][]types.TxHash, len(batches))
	for i := range ids {
		ids[i] = make([]types.TxHash, len(batches[i]))
		for j := range ids[i] {
			ids[i][j] = batches[i][j].HashNoSigs()
		}
	}
	return ids
}

type ownedCoin struct {
	id    types.CoinID
	value types.CoinValue
}

// A ChainSim applies and seals batches of transactions on an in-memory
// ledger, spending coins owned by a single key.
type ChainSim struct {
	Genesis types.Header
	Headers []types.Header
	State   *consensus.State

	nonce [2]byte // for distinguishing forks

	// for simulating transactions
	privkey types.PrivateKey
	outputs []ownedCoin
}

// Address returns the address of the simulator's coins.
func (cs *ChainSim) Address() types.Address {
	return wallet.StandardAddress(cs.privkey.PublicKey())
}

// Fork returns a copy of cs whose subsequent blocks are distinct from those
// of cs.
func (cs *ChainSim) Fork() *ChainSim {
	cs2 := *cs
	cs2.State = cs.State.Fork()
	cs2.Headers = append([]types.Header(nil), cs2.Headers...)
	cs2.outputs = append([]ownedCoin(nil), cs2.outputs...)
	if cs.nonce[1]++; cs.nonce[1] == 0 {
		cs.nonce[0]++
	}
	return &cs2
}

// MineBlockWithTxns applies txns as a single batch, then seals the state,
// paying the proposer reward to the simulator. It panics if txns are
// invalid.
func (cs *ChainSim) MineBlockWithTxns(txns ...types.Transaction) types.Header {
	if err := cs.State.ApplyTxBatch(txns); err != nil {
		panic(fmt.Sprintf("invalid block: %v", err))
	}
	sealed := cs.State.Seal(&consensus.ProposerAction{RewardDest: cs.Address()})
	h := sealed.Header()
	cs.Headers = append(cs.Headers, h)
	cs.State = sealed.NextState()

	// update our outputs
	for _, txn := range txns {
		for i, out := range txn.Outputs {
			if out.CovHash == cs.Address() && out.Denom == types.DenomMel {
				cs.outputs = append(cs.outputs, ownedCoin{txn.OutputCoinID(i), out.Value})
			}
		}
	}
	rewardID := consensus.ProposerRewardCoinID(h.Height)
	if cdh, ok := cs.State.Store.Coin(rewardID); ok && !cdh.CoinData.Value.IsZero() {
		cs.outputs = append(cs.outputs, ownedCoin{rewardID, cdh.CoinData.Value})
	}
	return h
}

// minFee returns the minimum fee of txn once signed.
func (cs *ChainSim) minFee(txn types.Transaction) types.CoinValue {
	txn.Sigs = [][]byte{make([]byte, 64)}
	return cs.State.MinFee(&txn)
}

// MineBlockWithOutputs funds a transaction creating outs from the
// simulator's coins, and mines it. It panics if the simulator cannot afford
// outs.
func (cs *ChainSim) MineBlockWithOutputs(outs ...types.CoinData) (types.Header, types.Transaction) {
	txn := types.Transaction{
		Kind:      types.TxKindNormal,
		Outputs:   outs,
		Covenants: [][]byte{wallet.StandardCovenant(cs.privkey.PublicKey())},
	}
	var totalOut types.CoinValue
	for _, out := range outs {
		totalOut = totalOut.Add(out.Value)
	}

	// select inputs and compute change output
	var totalIn types.CoinValue
	for i, out := range cs.outputs {
		txn.Inputs = append(txn.Inputs, out.id)
		totalIn = totalIn.Add(out.value)
		if totalIn.Cmp(totalOut) > 0 {
			cs.outputs = cs.outputs[i+1:]
			break
		}
	}
	if totalIn.Cmp(totalOut) <= 0 {
		panic("insufficient funds")
	}
	txn.Outputs = append(txn.Outputs, types.CoinData{
		CovHash: cs.Address(),
		Denom:   types.DenomMel,
	})
	txn.Fee = cs.minFee(txn)
	change := totalIn.Sub(totalOut)
	if change.Cmp(txn.Fee) <= 0 {
		panic("insufficient funds")
	}
	txn.Outputs[len(txn.Outputs)-1].Value = change.Sub(txn.Fee)
	txn.SignEd25519(cs.privkey)
	return cs.MineBlockWithTxns(txn), txn
}

// MineBlock simulates activity by sending each of the simulator's coins back
// to itself, minus one unit sent to an address unique to this fork.
func (cs *ChainSim) MineBlock() types.Header {
	var txns []types.Transaction
	remaining := cs.outputs[:0]
	for _, out := range cs.outputs {
		if out.value.Cmp(types.NewCoinValue64(1<<20)) < 0 {
			remaining = append(remaining, out)
			continue
		}
		txn := types.Transaction{
			Kind:   types.TxKindNormal,
			Inputs: []types.CoinID{out.id},
			Outputs: []types.CoinData{
				{CovHash: cs.Address(), Denom: types.DenomMel},
				{CovHash: types.Address{cs.nonce[0], cs.nonce[1], 1, 2, 3}, Value: types.NewCoinValue64(1), Denom: types.DenomMel},
			},
			Covenants: [][]byte{wallet.StandardCovenant(cs.privkey.PublicKey())},
		}
		txn.Fee = cs.minFee(txn)
		txn.Outputs[0].Value = out.value.Sub(txn.Fee).Sub(types.NewCoinValue64(1))
		txn.SignEd25519(cs.privkey)
		txns = append(txns, txn)
	}
	cs.outputs = remaining
	return cs.MineBlockWithTxns(txns...)
}

// MineBlocks mines n blocks with MineBlock.
func (cs *ChainSim) MineBlocks(n int) []types.Header {
	headers := make([]types.Header, n)
	for i := range headers {
		headers[i] = cs.MineBlock()
	}
	return headers
}

// NewChainSim returns a simulator on network n whose genesis coin, worth
// 1000 coins, is owned by the simulator.
func NewChainSim(n *consensus.Network) *ChainSim {
	privkey := types.NewPrivateKeyFromSeed(make([]byte, 32))
	cas, err := store.NewCAS(store.NewMemDB())
	if err != nil {
		panic(err)
	}
	cs := &ChainSim{privkey: privkey}
	gift := types.CoinData{
		CovHash: cs.Address(),
		Value:   types.Coins(1000),
		Denom:   types.DenomMel,
	}
	sealed := consensus.GenesisConfig{
		Network:           n,
		InitCoinData:      gift,
		InitFeeMultiplier: 1 << 16,
	}.Realize(store.NewLedger(cas)).Seal(nil)
	cs.Genesis = sealed.Header()
	cs.State = sealed.NextState()
	cs.outputs = []ownedCoin{{types.CoinID{}, gift.Value}}
	return cs
}
