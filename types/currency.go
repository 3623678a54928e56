package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"math/bits"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MicroUnit is the number of base units in one whole coin of any
	// denomination.
	MicroUnit = 1_000_000

	// microExp is log10(MicroUnit).
	microExp = 6
)

var (
	// ZeroCoinValue represents zero base units.
	ZeroCoinValue CoinValue

	// MaxCoinValue is the largest value a single coin, or a transaction fee,
	// may carry (2^120).
	MaxCoinValue = NewCoinValue(0, 1<<56)

	// MaxUint128 is the largest value representable by a CoinValue. Saturating
	// arithmetic clamps to it.
	MaxUint128 = NewCoinValue(math.MaxUint64, math.MaxUint64)
)

// CoinValue represents a quantity of base units as an unsigned 128-bit number.
type CoinValue struct {
	Lo, Hi uint64
}

// NewCoinValue returns the CoinValue (lo,hi).
func NewCoinValue(lo, hi uint64) CoinValue {
	return CoinValue{lo, hi}
}

// NewCoinValue64 converts c to a CoinValue.
func NewCoinValue64(c uint64) CoinValue {
	return CoinValue{c, 0}
}

// Coins returns a CoinValue representing n whole coins.
func Coins(n uint32) CoinValue {
	return NewCoinValue64(MicroUnit).Mul64(uint64(n))
}

// IsZero returns true if c == 0.
func (c CoinValue) IsZero() bool {
	return c == ZeroCoinValue
}

// Cmp compares c and v and returns:
//
//	-1 if c <  v
//	 0 if c == v
//	+1 if c >  v
func (c CoinValue) Cmp(v CoinValue) int {
	if c == v {
		return 0
	} else if c.Hi < v.Hi || (c.Hi == v.Hi && c.Lo < v.Lo) {
		return -1
	} else {
		return 1
	}
}

// AddWithOverflow returns c+v, along with a boolean indicating whether the
// result overflowed.
func (c CoinValue) AddWithOverflow(v CoinValue) (CoinValue, bool) {
	lo, carry := bits.Add64(c.Lo, v.Lo, 0)
	hi, carry := bits.Add64(c.Hi, v.Hi, carry)
	return CoinValue{lo, hi}, carry != 0
}

// Add returns c+v. If the result would overflow, Add panics.
//
// It is safe to use Add in any context where the sum cannot exceed the total
// supply of coins.
func (c CoinValue) Add(v CoinValue) CoinValue {
	s, overflow := c.AddWithOverflow(v)
	if overflow {
		panic("overflow")
	}
	return s
}

// SaturatingAdd returns c+v, clamped to MaxUint128.
func (c CoinValue) SaturatingAdd(v CoinValue) CoinValue {
	s, overflow := c.AddWithOverflow(v)
	if overflow {
		return MaxUint128
	}
	return s
}

// SubWithUnderflow returns c-v, along with a boolean indicating whether the
// result underflowed.
func (c CoinValue) SubWithUnderflow(v CoinValue) (CoinValue, bool) {
	lo, borrow := bits.Sub64(c.Lo, v.Lo, 0)
	hi, borrow := bits.Sub64(c.Hi, v.Hi, borrow)
	return CoinValue{lo, hi}, borrow != 0
}

// Sub returns c-v. If the result would underflow, Sub panics.
func (c CoinValue) Sub(v CoinValue) CoinValue {
	s, underflow := c.SubWithUnderflow(v)
	if underflow {
		panic("underflow")
	}
	return s
}

// Mul64WithOverflow returns c*v, along with a boolean indicating whether the
// result overflowed.
func (c CoinValue) Mul64WithOverflow(v uint64) (CoinValue, bool) {
	// NOTE: this is the overflow-checked equivalent of:
	//
	//   hi, lo := bits.Mul64(c.Lo, v)
	//   hi += c.Hi * v
	//
	hi0, lo0 := bits.Mul64(c.Lo, v)
	hi1, lo1 := bits.Mul64(c.Hi, v)
	hi2, c0 := bits.Add64(hi0, lo1, 0)
	return CoinValue{lo0, hi2}, hi1 != 0 || c0 != 0
}

// Mul64 returns c*v. If the result would overflow, Mul64 panics.
func (c CoinValue) Mul64(v uint64) CoinValue {
	p, overflow := c.Mul64WithOverflow(v)
	if overflow {
		panic("overflow")
	}
	return p
}

// SaturatingMul64 returns c*v, clamped to MaxUint128.
func (c CoinValue) SaturatingMul64(v uint64) CoinValue {
	p, overflow := c.Mul64WithOverflow(v)
	if overflow {
		return MaxUint128
	}
	return p
}

// Rsh returns c >> n.
func (c CoinValue) Rsh(n uint) CoinValue {
	switch {
	case n >= 128:
		return ZeroCoinValue
	case n >= 64:
		return CoinValue{c.Hi >> (n - 64), 0}
	case n == 0:
		return c
	default:
		return CoinValue{c.Lo>>n | c.Hi<<(64-n), c.Hi >> n}
	}
}

// quoRem64 returns q = c/v and r = c%v.
func (c CoinValue) quoRem64(v uint64) (q CoinValue, r uint64) {
	if c.Hi < v {
		q.Lo, r = bits.Div64(c.Hi, c.Lo, v)
	} else {
		q.Hi, r = bits.Div64(0, c.Hi, v)
		q.Lo, r = bits.Div64(r, c.Lo, v)
	}
	return
}

// Big returns c as a *big.Int.
func (c CoinValue) Big() *big.Int {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], c.Hi)
	binary.BigEndian.PutUint64(b[8:], c.Lo)
	return new(big.Int).SetBytes(b)
}

// CoinValueFromBig converts i to a CoinValue. It returns an error if i is
// negative or does not fit in 128 bits.
func CoinValueFromBig(i *big.Int) (CoinValue, error) {
	if i.Sign() < 0 {
		return ZeroCoinValue, errors.New("value cannot be negative")
	} else if i.BitLen() > 128 {
		return ZeroCoinValue, errors.New("value overflows CoinValue representation")
	}
	return NewCoinValue(i.Uint64(), new(big.Int).Rsh(i, 64).Uint64()), nil
}

// ExactString returns the base-10 representation of c in base units.
func (c CoinValue) ExactString() string {
	if c.IsZero() {
		return "0"
	}
	buf := []byte("0000000000000000000000000000000000000000") // log10(2^128) < 40
	for i := len(buf); ; i -= 19 {
		q, r := c.quoRem64(1e19) // largest power of 10 that fits in a uint64
		var n int
		for ; r != 0; r /= 10 {
			n++
			buf[i-n] += byte(r % 10)
		}
		if q.IsZero() {
			return string(buf[i-n:])
		}
		c = q
	}
}

// String returns the value of c in whole coins, with up to six decimal
// places, e.g. "1.5" for 1500000 base units.
func (c CoinValue) String() string {
	return decimal.NewFromBigInt(c.Big(), -microExp).String()
}

// Format implements fmt.Formatter. It accepts the following formats:
//
//	d: raw integer (equivalent to ExactString())
//	s: whole coins (equivalent to String())
//	v: same as s
func (c CoinValue) Format(f fmt.State, v rune) {
	switch v {
	case 'd':
		io.WriteString(f, c.ExactString())
	case 's', 'v':
		io.WriteString(f, c.String())
	default:
		fmt.Fprintf(f, "%%!%c(unsupported,CoinValue=%d)", v, c)
	}
}

// MarshalJSON implements json.Marshaler.
func (c CoinValue) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.ExactString() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CoinValue) UnmarshalJSON(b []byte) (err error) {
	*c, err = parseExactCoinValue(strings.Trim(string(b), `"`))
	return
}

func parseExactCoinValue(s string) (CoinValue, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return ZeroCoinValue, errors.New("not an integer")
	}
	return CoinValueFromBig(i)
}

// ParseCoinValue parses s as a number of whole coins, e.g. "1.5", and returns
// the corresponding number of base units. Values with more than six decimal
// places are rejected.
func ParseCoinValue(s string) (CoinValue, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return ZeroCoinValue, fmt.Errorf("not a number: %w", err)
	}
	d = d.Shift(microExp)
	if !d.Equal(d.Truncate(0)) {
		return ZeroCoinValue, errors.New("too many decimal places")
	}
	return CoinValueFromBig(d.BigInt())
}
