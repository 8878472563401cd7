package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	got, err := ToBaseUnits("10", 6)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(10_000_000), got)

	got, err = ToBaseUnits("0.0000015", 6)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1), got, "digits beyond precision are truncated")

	_, err = ToBaseUnits("0.0000001", 6)
	assert.ErrorIs(t, err, ErrAmountZero)

	_, err = ToBaseUnits("-1", 6)
	assert.ErrorIs(t, err, ErrAmountNegative)

	_, err = ToBaseUnits("abc", 6)
	assert.ErrorIs(t, err, ErrConversionFailed)

	_, err = ToBaseUnits("1", 19)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestFromBaseUnitsAndFormat(t *testing.T) {
	d, err := FromBaseUnits(sdkmath.NewInt(60_000_000), 6)
	require.NoError(t, err)
	assert.Equal(t, "60.0", FormatDec(d))

	s, err := FormatBaseUnits(sdkmath.NewInt(250_000), 6)
	require.NoError(t, err)
	assert.Equal(t, "0.25", s)

	_, err = FromBaseUnits(sdkmath.Int{}, 6)
	assert.ErrorIs(t, err, ErrAmountNil)
}

func TestDecimalShift(t *testing.T) {
	up, err := DecimalShift(12)
	require.NoError(t, err)
	assert.True(t, up.Equal(sdkmath.LegacyNewDec(1_000_000_000_000)))

	down, err := DecimalShift(-2)
	require.NoError(t, err)
	assert.True(t, down.Equal(sdkmath.LegacyNewDecWithPrec(1, 2)))
}
