package types

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"lukechampine.com/frand"
)

func TestCoinValueCmp(t *testing.T) {
	tests := []struct {
		a, b CoinValue
		want int
	}{
		{ZeroCoinValue, ZeroCoinValue, 0},
		{ZeroCoinValue, NewCoinValue64(5), -1},
		{NewCoinValue64(5), ZeroCoinValue, 1},
		{NewCoinValue(0, 1), NewCoinValue(0, 1), 0},
		{NewCoinValue(math.MaxUint64, 0), NewCoinValue(0, 1), -1},
		{NewCoinValue(0, 1), NewCoinValue(math.MaxUint64, 0), 1},
	}
	for _, tt := range tests {
		if got := tt.a.Cmp(tt.b); got != tt.want {
			t.Errorf("CoinValue.Cmp(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCoinValueAddWithOverflow(t *testing.T) {
	tests := []struct {
		a, b, want CoinValue
		overflows  bool
	}{
		{ZeroCoinValue, ZeroCoinValue, ZeroCoinValue, false},
		{NewCoinValue64(200), NewCoinValue64(50), NewCoinValue64(250), false},
		{NewCoinValue(0, 71), NewCoinValue(math.MaxUint64, 0), NewCoinValue(math.MaxUint64, 71), false},
		{NewCoinValue(math.MaxUint64, 0), NewCoinValue64(1), NewCoinValue(0, 1), false},
		{MaxUint128, NewCoinValue64(1), ZeroCoinValue, true},
	}
	for _, tt := range tests {
		got, overflows := tt.a.AddWithOverflow(tt.b)
		if tt.overflows != overflows {
			t.Errorf("CoinValue.AddWithOverflow(%d, %d) overflow %t, want %t", tt.a, tt.b, overflows, tt.overflows)
		} else if got != tt.want {
			t.Errorf("CoinValue.AddWithOverflow(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCoinValueSaturating(t *testing.T) {
	if got := MaxUint128.SaturatingAdd(NewCoinValue64(1)); got != MaxUint128 {
		t.Fatalf("SaturatingAdd did not clamp: %d", got)
	} else if got := NewCoinValue64(2).SaturatingAdd(NewCoinValue64(3)); got != NewCoinValue64(5) {
		t.Fatalf("SaturatingAdd(2, 3) = %d", got)
	} else if got := NewCoinValue(0, 1<<63).SaturatingMul64(2); got != MaxUint128 {
		t.Fatalf("SaturatingMul64 did not clamp: %d", got)
	} else if got := NewCoinValue(1<<63, 0).SaturatingMul64(4); got != NewCoinValue(0, 2) {
		t.Fatalf("SaturatingMul64 carry = %d", got)
	}
}

func TestCoinValueSubWithUnderflow(t *testing.T) {
	tests := []struct {
		a, b, want CoinValue
		underflows bool
	}{
		{ZeroCoinValue, ZeroCoinValue, ZeroCoinValue, false},
		{NewCoinValue(0, 1), NewCoinValue(math.MaxUint64, 0), NewCoinValue64(1), false},
		{NewCoinValue(0, 1), NewCoinValue64(1), NewCoinValue(math.MaxUint64, 0), false},
		{ZeroCoinValue, NewCoinValue64(1), MaxUint128, true},
	}
	for _, tt := range tests {
		got, underflows := tt.a.SubWithUnderflow(tt.b)
		if tt.underflows != underflows {
			t.Errorf("CoinValue.SubWithUnderflow(%d, %d) underflow %t, want %t", tt.a, tt.b, underflows, tt.underflows)
		} else if got != tt.want {
			t.Errorf("CoinValue.SubWithUnderflow(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCoinValueRsh(t *testing.T) {
	tests := []struct {
		c    CoinValue
		n    uint
		want CoinValue
	}{
		{NewCoinValue64(1 << 16), 16, NewCoinValue64(1)},
		{NewCoinValue(0, 1), 1, NewCoinValue64(1 << 63)},
		{NewCoinValue(0, 1), 64, NewCoinValue64(1)},
		{MaxUint128, 128, ZeroCoinValue},
		{MaxUint128, 0, MaxUint128},
	}
	for _, tt := range tests {
		if got := tt.c.Rsh(tt.n); got != tt.want {
			t.Errorf("CoinValue.Rsh(%d, %v) = %d, want %d", tt.c, tt.n, got, tt.want)
		}
	}
}

func TestCoinValueBig(t *testing.T) {
	for i := 0; i < 100; i++ {
		c := NewCoinValue(frand.Uint64n(math.MaxUint64), frand.Uint64n(math.MaxUint64))
		c2, err := CoinValueFromBig(c.Big())
		if err != nil {
			t.Fatal(err)
		} else if c2 != c {
			t.Fatalf("big round trip: %d != %d", c, c2)
		}
	}
	if _, err := CoinValueFromBig(big.NewInt(-1)); err == nil {
		t.Fatal("expected negative value to be rejected")
	} else if _, err := CoinValueFromBig(new(big.Int).Lsh(big.NewInt(1), 128)); err == nil {
		t.Fatal("expected 2^128 to be rejected")
	}
}

func TestCoinValueExactString(t *testing.T) {
	tests := []struct {
		c    CoinValue
		want string
	}{
		{ZeroCoinValue, "0"},
		{NewCoinValue64(10), "10"},
		{NewCoinValue64(1e19), "10000000000000000000"},
		{MaxCoinValue, "1329227995784915872903807060280344576"},
		{MaxUint128, "340282366920938463463374607431768211455"},
	}
	for _, tt := range tests {
		if got := tt.c.ExactString(); got != tt.want {
			t.Errorf("ExactString(%v, %v) = %v, want %v", tt.c.Lo, tt.c.Hi, got, tt.want)
		}
		if c, err := parseExactCoinValue(tt.want); err != nil {
			t.Error(err)
		} else if c != tt.c {
			t.Errorf("parseExactCoinValue(%v) = %d", tt.want, c)
		}
	}
}

func TestCoinValueString(t *testing.T) {
	tests := []struct {
		c    CoinValue
		want string
	}{
		{ZeroCoinValue, "0"},
		{NewCoinValue64(1), "0.000001"},
		{NewCoinValue64(1_500_000), "1.5"},
		{Coins(42), "42"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String(%d) = %v, want %v", tt.c, got, tt.want)
		}
		if c, err := ParseCoinValue(tt.want); err != nil {
			t.Error(err)
		} else if c != tt.c {
			t.Errorf("ParseCoinValue(%v) = %d, want %d", tt.want, c, tt.c)
		}
	}

	for _, s := range []string{"", "foo", "-1", "0.0000001", "1e40"} {
		if _, err := ParseCoinValue(s); err == nil {
			t.Errorf("ParseCoinValue(%q) should have failed", s)
		}
	}
}

func TestCoinValueJSON(t *testing.T) {
	c := NewCoinValue(frand.Uint64n(math.MaxUint64), frand.Uint64n(1<<56))
	js, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var c2 CoinValue
	if err := json.Unmarshal(js, &c2); err != nil {
		t.Fatal(err)
	} else if c != c2 {
		t.Fatalf("JSON round trip: %d != %d", c, c2)
	}
}
