// Package core provides the expense domain model.
//
// This file contains the Money type used for every price and settlement
// amount, along with parsing and rounding helpers.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// pricePattern is the accepted textual form of a price: digits with up to two
// fraction digits. Signs, exponents and NaN are rejected.
var pricePattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Money is an exact decimal amount. It encodes as a bare JSON number.
type Money struct {
	decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney wraps d without rounding.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

// ParsePrice parses a user-supplied price.
//
// Examples:
//
//	ParsePrice("12")    -> 12, nil
//	ParsePrice("12.5")  -> 12.5, nil
//	ParsePrice("12.34") -> 12.34, nil
//	ParsePrice("12.345") -> error
//	ParsePrice("-1")    -> error
func ParsePrice(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrEmptyPrice
	}
	if !pricePattern.MatchString(s) {
		return Zero, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidPrice
	}
	return Money{Decimal: d}, nil
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Rounded returns m rounded to cents.
func (m Money) Rounded() Money {
	return Money{Decimal: Round2(m.Decimal)}
}

// IsCurrency reports whether m is non-negative with at most two fraction digits.
func (m Money) IsCurrency() bool {
	return !m.IsNegative() && m.Equal(Round2(m.Decimal))
}

// String formats m with exactly two fraction digits.
func (m Money) String() string {
	return m.StringFixed(2)
}

// MarshalJSON encodes m as a JSON number rounded to cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(Round2(m.Decimal).String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidPrice
	}
	m.Decimal = d
	return nil
}
