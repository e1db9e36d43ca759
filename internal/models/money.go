package models

import (
	"errors"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// MinorUnitDigits is the number of fractional digits the currency supports (cents)
const MinorUnitDigits = 2

var (
	ErrInvalidMoney   = errors.New("invalid monetary amount")
	ErrMoneyPrecision = errors.New("amount has more than 2 decimal places")
	ErrMoneyRange     = errors.New("amount out of range")
)

var (
	maxMoney = decimal.NewFromInt(math.MaxInt64)
	minMoney = decimal.NewFromInt(math.MinInt64)
)

// Money is an exact amount in minor units (cents). It never passes through
// binary floating point: it is parsed from and rendered to decimal strings.
type Money int64

// ParseMoney parses a decimal string such as "50", "50.1" or "50.10"
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	return MoneyFromDecimal(d)
}

// MustParseMoney is ParseMoney for constants and tests; it panics on bad input
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal converts an exact decimal to minor units
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(MinorUnitDigits)) {
		return 0, ErrMoneyPrecision
	}
	minor := d.Shift(MinorUnitDigits)
	if minor.GreaterThan(maxMoney) || minor.LessThan(minMoney) {
		return 0, ErrMoneyRange
	}
	return Money(minor.IntPart()), nil
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -MinorUnitDigits)
}

// String renders the amount with exactly two fractional digits
func (m Money) String() string {
	return m.Decimal().StringFixed(MinorUnitDigits)
}

// IsPositive reports whether the amount is strictly greater than zero
func (m Money) IsPositive() bool {
	return m > 0
}

// Add returns m+o and false if the sum overflows
func (m Money) Add(o Money) (Money, bool) {
	if o > 0 && m > math.MaxInt64-o {
		return 0, false
	}
	if o < 0 && m < math.MinInt64-o {
		return 0, false
	}
	return m + o, true
}

// Sub returns m-o and false if the difference overflows
func (m Money) Sub(o Money) (Money, bool) {
	if o == math.MinInt64 {
		return 0, false
	}
	return m.Add(-o)
}

// MarshalJSON renders the amount as a quoted decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare number literal.
// Both are parsed as decimals, never as float64.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidMoney
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
