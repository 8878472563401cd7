/*
This file contains common utility functions for converting between human-unit
decimal strings and base-unit SDK integers, and for formatting SDK decimals.
*/

package utils

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Amount conversion failures. Executor validation wraps them as invalid
// requests.
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrAmountZero       = errors.New("amount is zero")
	ErrConversionFailed = errors.New("conversion failed")
)

// MaxPrecision bounds decimal exponents to what LegacyDec can hold exactly.
const MaxPrecision = 18

// PowTen returns 10^n as a decimal.
func PowTen(n int) (sdkmath.LegacyDec, error) {
	if n < 0 || n > 2*MaxPrecision {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d", ErrInvalidPrecision, n)
	}
	return sdkmath.LegacyNewDecFromInt(sdkmath.NewIntWithDecimal(1, n)), nil
}

// DecimalShift returns 10^shift for any sign of shift, as used when a price
// is corrected by the decimal difference of two assets.
func DecimalShift(shift int) (sdkmath.LegacyDec, error) {
	if shift >= 0 {
		return PowTen(shift)
	}
	p, err := PowTen(-shift)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return sdkmath.LegacyOneDec().Quo(p), nil
}

// ParseDec parses a non-negative human decimal string.
func ParseDec(s string) (sdkmath.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	d, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q: %w", ErrConversionFailed, s, err)
	}
	if d.IsNegative() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrAmountNegative, s)
	}
	return d, nil
}

// ToBaseUnits converts a human amount ("1.5") into base units (1500000 for 6 decimals).
// Digits beyond the asset precision are truncated. A result of zero is an error.
func ToBaseUnits(human string, decimals int) (sdkmath.Int, error) {
	d, err := ParseDec(human)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return DecToBaseUnits(d, decimals)
}

// DecToBaseUnits is ToBaseUnits for an already parsed decimal.
func DecToBaseUnits(d sdkmath.LegacyDec, decimals int) (sdkmath.Int, error) {
	if decimals < 0 || decimals > MaxPrecision {
		return sdkmath.Int{}, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	factor, err := PowTen(decimals)
	if err != nil {
		return sdkmath.Int{}, err
	}
	out := d.Mul(factor).TruncateInt()
	if out.IsZero() {
		return sdkmath.Int{}, ErrAmountZero
	}
	return out, nil
}

// FromBaseUnits converts base units into a human decimal.
func FromBaseUnits(amount sdkmath.Int, decimals int) (sdkmath.LegacyDec, error) {
	if amount.IsNil() {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	if decimals < 0 || decimals > MaxPrecision {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	factor, err := PowTen(decimals)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return sdkmath.LegacyNewDecFromInt(amount).Quo(factor), nil
}

// FormatDec renders a decimal without trailing zeros, keeping one fractional
// digit for whole numbers ("60.0", "0.25").
func FormatDec(d sdkmath.LegacyDec) string {
	if d.IsNil() {
		return "0.0"
	}
	s := d.String()
	if !strings.Contains(s, ".") {
		return s + ".0"
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// FormatBaseUnits is FromBaseUnits followed by FormatDec.
func FormatBaseUnits(amount sdkmath.Int, decimals int) (string, error) {
	d, err := FromBaseUnits(amount, decimals)
	if err != nil {
		return "", err
	}
	return FormatDec(d), nil
}
