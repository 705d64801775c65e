// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals with at most AmountScale fractional
// digits. Stores without a native decimal column persist them as scaled
// integers through ToUnits and FromUnits.
package core

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept for amounts and
// balances.
const AmountScale int32 = 4

var ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrInvalidInput)

// ParseAmount converts a user supplied decimal string into an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up beyond AmountScale digits. Signs, exponents and zero are
// rejected: amounts are magnitudes.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("0.00005")  -> 0.0001, nil
//	ParseAmount("-1")       -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(AmountScale)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseBalance is ParseAmount for opening balances, which may be zero or
// negative.
func ParseBalance(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(AmountScale), nil
}

// ValidateAmount checks a transaction amount: strictly positive and
// representable at AmountScale.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return ValidateScale(d)
}

// ValidateScale rejects values with more fractional digits than AmountScale
// or outside the range of a scaled int64.
func ValidateScale(d decimal.Decimal) error {
	if _, err := ToUnits(d); err != nil {
		return err
	}
	return nil
}

// ToUnits returns d as an integer count of 10^-AmountScale units.
func ToUnits(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(AmountScale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, AmountScale)
	}
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return bi.Int64(), nil
}

// FromUnits is the inverse of ToUnits.
func FromUnits(units int64) decimal.Decimal {
	return decimal.NewFromBigInt(big.NewInt(units), -AmountScale)
}
