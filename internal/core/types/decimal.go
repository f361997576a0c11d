// Package types provides the money, percentage and calendar-period types shared by
// the ledger, settlement and contract packages.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Percent is a percentage stored with two decimals (19.00 means 19%).
type Percent = decimal.Decimal

// MoneyScale is the number of fractional digits kept on stored monetary values.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds half away from zero to MoneyScale digits ("half-up" for the
// non-negative amounts the engine produces).
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// PercentOf returns base * pct / 100, rounded once at the division step.
func PercentOf(base Money, pct Percent) Money {
	return RoundMoney(base.Mul(pct).Div(hundred))
}

// ApplyIncrease returns base increased by pct percent, rounded to MoneyScale.
func ApplyIncrease(base Money, pct Percent) Money {
	return RoundMoney(base.Mul(hundred.Add(pct)).Div(hundred))
}

// Sum adds values without intermediate rounding.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// HasMoneyScale reports whether v fits in MoneyScale fractional digits.
func HasMoneyScale(v decimal.Decimal) bool {
	return v.Equal(RoundMoney(v))
}

// ValidPercent reports whether pct lies in [0, 100].
func ValidPercent(pct Percent) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(hundred)
}
