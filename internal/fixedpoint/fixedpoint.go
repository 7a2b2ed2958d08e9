// Package fixedpoint provides checked integer arithmetic for vault accounting.
// All monetary values are unsigned 64-bit integers at 1e6 scale (6 decimal
// places). Operations never wrap silently: anything that would overflow,
// underflow, or divide by zero returns an error instead.
package fixedpoint

import (
	"errors"
	"math/bits"
)

// Scale is the fixed-point denominator: 1 unit = 1e-6 of the base asset.
const Scale uint64 = 1_000_000

// BpsDenom is the basis-point denominator (100% = 10000 bps).
const BpsDenom uint64 = 10_000

var (
	ErrOverflow     = errors.New("fixedpoint: overflow")
	ErrUnderflow    = errors.New("fixedpoint: underflow")
	ErrDivideByZero = errors.New("fixedpoint: division by zero")
)

func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// MulDiv computes floor(a * b / den) with a full 128-bit intermediate,
// so a*b may exceed 64 bits as long as the quotient fits.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, ErrOverflow // quotient would not fit in 64 bits
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// ApplyBps returns floor(amount * bps / 10000).
func ApplyBps(amount uint64, bps uint16) (uint64, error) {
	return MulDiv(amount, uint64(bps), BpsDenom)
}

// SubSigned applies a signed delta to an unsigned balance.
func SubSigned(a uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		return Sub(a, uint64(delta))
	}
	return Add(a, uint64(-delta))
}
