package consensus

import (
	"go.melnet.tech/stf/melvm"
	"go.melnet.tech/stf/types"
)

// TxWeight returns the weight of txn: the size of its encoding plus the
// weight of each of its covenants. Covenants that fail to decode weigh
// nothing here; they can never authorize a spend.
func TxWeight(txn *types.Transaction) uint64 {
	w := uint64(len(types.EncodeBytes(txn)))
	for _, c := range txn.Covenants {
		cw, err := melvm.Covenant(c).Weight()
		if err != nil {
			continue
		}
		if w+cw < w {
			return ^uint64(0)
		}
		w += cw
	}
	return w
}

// MinFee returns the minimum fee for txn under the given fee multiplier, which
// is a fixed-point number with 16 fractional bits.
func MinFee(txn *types.Transaction, feeMultiplier uint64) types.CoinValue {
	return types.NewCoinValue64(TxWeight(txn)).SaturatingMul64(feeMultiplier).Rsh(16)
}

// MinFee returns the minimum fee for txn in s.
func (s *State) MinFee(txn *types.Transaction) types.CoinValue {
	return MinFee(txn, s.FeeMultiplier)
}
