package fixedpoint

import (
	"errors"
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	sum, err := Add(100_000_000, 50_000_000)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum != 150_000_000 {
		t.Fatalf("Add: got %d", sum)
	}

	if _, err := Add(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := Add(math.MaxUint64, 0); err != nil {
		t.Fatalf("max + 0 should not overflow: %v", err)
	}
}

func TestSub(t *testing.T) {
	diff, err := Sub(100_000_000, 99_999_999)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff != 1 {
		t.Fatalf("Sub: got %d", diff)
	}

	if _, err := Sub(0, 1); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestMulDiv(t *testing.T) {
	// 100 shares * 110 pool / 100 totalShares = 110
	got, err := MulDiv(100_000_000, 110_000_000, 100_000_000)
	if err != nil {
		t.Fatalf("MulDiv: %v", err)
	}
	if got != 110_000_000 {
		t.Fatalf("MulDiv: got %d", got)
	}

	// Intermediate product exceeds 64 bits but quotient fits.
	big := uint64(1) << 62
	got, err = MulDiv(big, 4, 2)
	if err != nil {
		t.Fatalf("MulDiv with 128-bit intermediate: %v", err)
	}
	if got != big*2 {
		t.Fatalf("MulDiv: got %d, want %d", got, big*2)
	}

	// Truncation toward zero.
	got, err = MulDiv(7, 1, 2)
	if err != nil {
		t.Fatalf("MulDiv: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected floor division, got %d", got)
	}

	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected divide-by-zero, got %v", err)
	}
	if _, err := MulDiv(math.MaxUint64, math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected quotient overflow, got %v", err)
	}
}

func TestApplyBps(t *testing.T) {
	// 25% of 9_000_000 = 2_250_000 (the fee from the reference scenario)
	fee, err := ApplyBps(9_000_000, 2500)
	if err != nil {
		t.Fatalf("ApplyBps: %v", err)
	}
	if fee != 2_250_000 {
		t.Fatalf("ApplyBps: got %d", fee)
	}

	full, err := ApplyBps(123_456, 10_000)
	if err != nil {
		t.Fatalf("ApplyBps: %v", err)
	}
	if full != 123_456 {
		t.Fatalf("10000 bps should be identity, got %d", full)
	}

	zero, err := ApplyBps(123_456, 0)
	if err != nil || zero != 0 {
		t.Fatalf("0 bps should be zero, got %d (%v)", zero, err)
	}
}

func TestSubSigned(t *testing.T) {
	got, err := SubSigned(100, 40)
	if err != nil || got != 60 {
		t.Fatalf("SubSigned(100, 40) = %d (%v)", got, err)
	}
	got, err = SubSigned(100, -40)
	if err != nil || got != 140 {
		t.Fatalf("SubSigned(100, -40) = %d (%v)", got, err)
	}
	if _, err := SubSigned(10, 11); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}
