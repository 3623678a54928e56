package main

import (
	"fmt"
	"time"

	"go.melnet.tech/stf/consensus"
	"go.melnet.tech/stf/melvm"
	"go.melnet.tech/stf/types"
	"go.uber.org/zap"
	"lukechampine.com/frand"
)

var (
	alwaysTrue     = melvm.AlwaysTrue()
	alwaysTrueAddr = alwaysTrue.Hash()
)

func benchCoin() types.CoinData {
	return types.CoinData{
		CovHash: alwaysTrueAddr,
		Value:   types.NewCoinValue64(10000),
		Denom:   types.DenomMel,
	}
}

func genesisConfig(n *consensus.Network) consensus.GenesisConfig {
	return consensus.GenesisConfig{
		Network:           n,
		InitCoinData:      benchCoin(),
		InitFeeMultiplier: 1,
	}
}

// A bench repeatedly applies faucet transactions to a state. Once enough
// coins have been created, each transaction also spends two of them, so the
// coin set stays roughly constant in size.
type bench struct {
	cfg   Config
	log   *zap.Logger
	flush func() error

	state *consensus.State
	queue []types.CoinID
}

func (b *bench) nextTxn() types.Transaction {
	txn := types.Transaction{
		Kind:      types.TxKindFaucet,
		Outputs:   []types.CoinData{benchCoin(), benchCoin()},
		Fee:       types.NewCoinValue64(100000000),
		Covenants: [][]byte{alwaysTrue},
		Data:      frand.Bytes(1024),
	}
	if len(b.queue) > b.cfg.QueueSize {
		txn.Inputs = append(txn.Inputs, b.queue[0], b.queue[1])
		b.queue = b.queue[2:]
	}
	b.queue = append(b.queue, txn.OutputCoinID(0), txn.OutputCoinID(1))
	return txn
}

func (b *bench) iterate(iter int) error {
	if iter > 0 && iter%b.cfg.SealInterval == 0 {
		sealed := b.state.Seal(nil)
		b.log.Info("sealed state", zap.Uint64("height", sealed.Header().Height), zap.Stringer("header", sealed.Header().Hash()))
		b.state = sealed.NextState()
	}
	start := time.Now()
	txns := make([]types.Transaction, b.cfg.BatchSize)
	for i := range txns {
		txns[i] = b.nextTxn()
	}
	if err := b.state.ApplyTxBatch(txns, consensus.WithLogger(b.log), consensus.WithWorkers(b.cfg.Workers)); err != nil {
		return fmt.Errorf("iteration %v: %w", iter, err)
	}
	applied := time.Since(start)
	if (iter+1)%b.cfg.FlushInterval == 0 {
		if err := b.flush(); err != nil {
			return fmt.Errorf("iteration %v: failed to flush: %w", iter, err)
		}
	}
	b.log.Info("iteration complete",
		zap.Int("iter", iter),
		zap.Duration("apply", applied),
		zap.Duration("total", time.Since(start)))
	return nil
}

func (b *bench) run() error {
	for iter := 0; iter < b.cfg.Iterations; iter++ {
		if err := b.iterate(iter); err != nil {
			return err
		}
	}
	return b.flush()
}

func newBench(cfg Config, s *consensus.State, flush func() error, log *zap.Logger) *bench {
	return &bench{
		cfg:   cfg,
		log:   log,
		flush: flush,
		state: s,
	}
}
