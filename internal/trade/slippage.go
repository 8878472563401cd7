// Package trade turns priced estimates into contract instructions: swap
// routes with a minimum-receive bound, limit orders and cancellations, each in
// the encoding the input asset requires.
package trade

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

var ErrInvalidSlippage = errors.New("invalid slippage")

// ParseSlippage accepts "n/d" or "n%" and returns a fraction in [0, 1).
func ParseSlippage(s string) (sdkmath.LegacyDec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: empty", ErrInvalidSlippage)
	}

	var (
		value sdkmath.LegacyDec
		err   error
	)
	switch {
	case strings.HasSuffix(s, "%"):
		value, err = sdkmath.LegacyNewDecFromStr(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		if err == nil {
			value = value.QuoInt64(100)
		}
	case strings.Contains(s, "/"):
		num, den, _ := strings.Cut(s, "/")
		value, err = fraction(strings.TrimSpace(num), strings.TrimSpace(den))
	default:
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q is neither n/d nor n%%", ErrInvalidSlippage, s)
	}
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q: %w", ErrInvalidSlippage, s, err)
	}
	if value.IsNegative() || value.GTE(sdkmath.LegacyOneDec()) {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %q must be at least 0 and below 1", ErrInvalidSlippage, s)
	}
	return value, nil
}

func fraction(num, den string) (sdkmath.LegacyDec, error) {
	n, err := sdkmath.LegacyNewDecFromStr(num)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	d, err := sdkmath.LegacyNewDecFromStr(den)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if d.IsZero() {
		return sdkmath.LegacyDec{}, errors.New("zero denominator")
	}
	return n.Quo(d), nil
}

// MinimumReceive is floor(expected * (1 - s)).
func MinimumReceive(expected sdkmath.Int, s sdkmath.LegacyDec) sdkmath.Int {
	return sdkmath.LegacyNewDecFromInt(expected).
		Mul(sdkmath.LegacyOneDec().Sub(s)).
		TruncateInt()
}

// MaximumInput is ceil(expected * (1 + s)).
func MaximumInput(expected sdkmath.Int, s sdkmath.LegacyDec) sdkmath.Int {
	return sdkmath.LegacyNewDecFromInt(expected).
		Mul(sdkmath.LegacyOneDec().Add(s)).
		Ceil().
		TruncateInt()
}
