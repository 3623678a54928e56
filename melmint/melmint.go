// Package melmint computes the reward for proof-of-work mints.
package melmint

import (
	"math/big"

	"go.melnet.tech/stf/types"
)

const (
	// BlocksPerDay is the expected number of blocks produced in a day.
	BlocksPerDay = 2880

	// ergPeriod is the number of blocks over which the amount of the mined
	// unit paid per dosc grows by one dosc's worth.
	ergPeriod = BlocksPerDay * 365
)

// CalculateReward returns the number of micro-dosc earned by a proof of the
// given difficulty. One dosc is a day's worth of sequential work at the
// reference speed: the fastest speed recorded in the previous block or, after
// TIP-910, the mint's own speed if that is faster.
func CalculateReward(mySpeed, prevSpeed uint64, difficulty uint32, tip910 bool) types.CoinValue {
	if difficulty > 127 {
		return types.MaxUint128
	}
	ref := max(prevSpeed, 1)
	if tip910 {
		ref = max(ref, mySpeed)
	}
	work := new(big.Int).Lsh(big.NewInt(1), uint(difficulty))
	num := work.Mul(work, big.NewInt(types.MicroUnit))
	den := new(big.Int).Mul(new(big.Int).SetUint64(ref), big.NewInt(BlocksPerDay))
	return saturate(num.Quo(num, den))
}

// DoscToErg converts an amount of micro-dosc earned at height to the amount
// of the mined unit that may be minted for it.
func DoscToErg(height uint64, microDosc types.CoinValue) types.CoinValue {
	num := new(big.Int).Add(new(big.Int).SetUint64(height), big.NewInt(ergPeriod))
	num.Mul(num, microDosc.Big())
	return saturate(num.Quo(num, big.NewInt(ergPeriod)))
}

func saturate(i *big.Int) types.CoinValue {
	c, err := types.CoinValueFromBig(i)
	if err != nil {
		return types.MaxUint128
	}
	return c
}
