package core

import (
	"math"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Term count for the exponential series. The per-second rate times any
// realistic accrual window stays well below 2, where this converges past
// the precision decimal division carries.
const expSeriesTerms = 18

func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, MathOverflow
	}
	return a + b, nil
}

// CheckedSub underflow maps to InsufficientBalance: every subtraction in
// this engine removes value from a recorded balance.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, InsufficientBalance
	}
	return a - b, nil
}

// MulDivFloor computes a*b/c with a 128-bit intermediate, flooring toward
// zero. The floor is the protocol-wide rounding bias: it always favors the
// pool over the individual depositor or borrower.
func MulDivFloor(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, MathOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, MathOverflow
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

// ExpApprox evaluates e^x as a truncated Taylor series on decimals. Two
// runs on the same input produce the same digits, which is the point:
// float64 powf is not reproducible across implementations.
func ExpApprox(x decimal.Decimal) decimal.Decimal {
	sum := decimal.New(1, 0)
	term := decimal.New(1, 0)
	for k := int64(1); k <= expSeriesTerms; k++ {
		term = term.Mul(x).Div(decimal.NewFromInt(k))
		sum = sum.Add(term)
	}
	return sum
}

// CompoundFactor converts an annual basis-point rate into the continuous
// compounding multiplier for a window of dt seconds.
func CompoundFactor(rateBps uint64, dt int64) decimal.Decimal {
	if dt <= 0 || rateBps == 0 {
		return decimal.New(1, 0)
	}
	x := decimal.NewFromUint64(rateBps).
		Div(decimal.NewFromInt(BASIS_POINTS)).
		Div(decimal.NewFromInt(SECONDS_PER_YEAR)).
		Mul(decimal.NewFromInt(dt))
	return ExpApprox(x)
}

// DecimalToUint64 floors d onto the integer ledger, rejecting values the
// ledger cannot hold.
func DecimalToUint64(d decimal.Decimal) (uint64, error) {
	d = d.Floor()
	if d.IsNegative() {
		return 0, MathOverflow
	}
	if d.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, MathOverflow
	}
	return d.BigInt().Uint64(), nil
}

// ApplyFactor scales an integer amount by a decimal multiplier, flooring
// the result back onto the integer ledger.
func ApplyFactor(amount uint64, factor decimal.Decimal) (uint64, error) {
	return DecimalToUint64(decimal.NewFromUint64(amount).Mul(factor))
}
