package melmint

import (
	"testing"

	"go.melnet.tech/stf/types"
)

func TestCalculateReward(t *testing.T) {
	// a day of work at the reference speed is one dosc
	speed := uint64(1 << 20)
	work := uint32(20 + 11) // 2^31 hashes, ~ speed * 2048 blocks
	got := CalculateReward(speed, speed, work, false)
	want := types.NewCoinValue64((1 << 31) * types.MicroUnit / ((1 << 20) * BlocksPerDay))
	if got != want {
		t.Fatalf("reward = %d, want %d", got, want)
	}

	// the legacy curve ignores a fast minter; the successor curve caps at it
	fast := speed * 4
	if CalculateReward(fast, speed, work, false) != got {
		t.Fatal("legacy reward depends on the mint's own speed")
	} else if r := CalculateReward(fast, speed, work, true); r.Cmp(got) >= 0 {
		t.Fatalf("successor reward %d should be below legacy %d", r, got)
	}

	// zero previous speed behaves like a speed of one
	if CalculateReward(0, 0, 0, false) != CalculateReward(0, 1, 0, false) {
		t.Fatal("zero previous speed not clamped")
	}

	// rewards grow with difficulty
	if CalculateReward(speed, speed, 40, false).Cmp(CalculateReward(speed, speed, 39, false)) <= 0 {
		t.Fatal("reward does not grow with difficulty")
	}
	if CalculateReward(1, 1, 255, false) != types.MaxUint128 {
		t.Fatal("huge difficulty should saturate")
	}
}

func TestDoscToErg(t *testing.T) {
	d := types.NewCoinValue64(1_000_000)
	if got := DoscToErg(0, d); got != d {
		t.Fatalf("at genesis one dosc should be one erg, got %d", got)
	} else if got := DoscToErg(ergPeriod, d); got != d.Mul64(2) {
		t.Fatalf("after one period one dosc should be two erg, got %d", got)
	} else if DoscToErg(100, d).Cmp(DoscToErg(50, d)) < 0 {
		t.Fatal("conversion is not monotonic in height")
	}
	if got := DoscToErg(1<<40, types.MaxUint128); got != types.MaxUint128 {
		t.Fatal("conversion should saturate")
	}
}
