// Package money centralizes decimal arithmetic for debt terms.
// All currency math goes through shopspring/decimal so ledger and
// proposal figures survive round-tripping without float drift.
package money

import (
	"github.com/shopspring/decimal"
)

var (
	decOne     = decimal.NewFromInt(1)
	decTwelve  = decimal.NewFromInt(12)
	decHundred = decimal.NewFromInt(100)
)

// MonthlyRate converts an annual rate (0.18 == 18% a.a.) to its monthly share.
func MonthlyRate(annual decimal.Decimal) decimal.Decimal {
	return annual.Div(decTwelve)
}

// AmortizedPayment returns the fixed monthly payment for principal at the
// given annual rate over n periods (price-table annuity). Zero-rate plans
// degenerate to straight division.
func AmortizedPayment(principal, annualRate decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 || principal.Sign() <= 0 {
		return decimal.Zero
	}
	i := MonthlyRate(annualRate)
	if i.Sign() == 0 {
		return principal.DivRound(decimal.NewFromInt(int64(n)), 8)
	}
	growth := decOne.Add(i).Pow(decimal.NewFromInt(int64(n)))
	num := principal.Mul(i).Mul(growth)
	den := growth.Sub(decOne)
	return num.DivRound(den, 8)
}

// TotalPaid is the gross amount paid over an n-period plan.
func TotalPaid(payment decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return payment.Mul(decimal.NewFromInt(int64(n)))
}

// InterestOver returns the interest portion of an n-period plan.
func InterestOver(principal, annualRate decimal.Decimal, n int) decimal.Decimal {
	total := TotalPaid(AmortizedPayment(principal, annualRate, n), n)
	if total.Sign() == 0 {
		return decimal.Zero
	}
	return total.Sub(principal)
}

// ApplyDiscount returns amount*(1-pct) with pct as a fraction (0.4 == 40%).
func ApplyDiscount(amount, pct decimal.Decimal) decimal.Decimal {
	if pct.Sign() <= 0 {
		return amount
	}
	return amount.Mul(decOne.Sub(pct))
}

// Pct renders a fraction as a percentage value, e.g. 0.18 -> 18.
func Pct(frac decimal.Decimal) decimal.Decimal {
	return frac.Mul(decHundred)
}

// FromFloat guards NaN/Inf inputs coming from JSON payloads.
func FromFloat(v float64) decimal.Decimal {
	if v != v || v > 1e15 || v < -1e15 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// Ratio returns a/b as float64, 0 when b is zero. Used for score weighting
// where exactness no longer matters.
func Ratio(a, b decimal.Decimal) float64 {
	if b.Sign() == 0 {
		return 0
	}
	f, _ := a.DivRound(b, 8).Float64()
	return f
}
