package generic_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/optical-engine/generic"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"-1.25", "-1.25", true},
		{"+2.00", "2", true},
		{"  0.5 ", "0.5", true},
		{"", "0", false},
		{"   ", "0", false},
		{"abc", "0", false},
		{"6/6", "0", false},
		{"++1", "0", false},
		{"-+1", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := generic.ParseDecimal(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestIsZeroOrBlank(t *testing.T) {
	assert.True(t, generic.IsZeroOrBlank(""))
	assert.True(t, generic.IsZeroOrBlank("0"))
	assert.True(t, generic.IsZeroOrBlank("0.00"))
	assert.False(t, generic.IsZeroOrBlank("-0.25"))
	assert.False(t, generic.IsZeroOrBlank("x"))
}

func TestRange_SnapAndAlign(t *testing.T) {
	r := generic.NewRange(-30, 30, 0.25)

	assert.True(t, r.Snap(dec("1.13")).Equal(dec("1.25")))
	assert.True(t, r.Snap(dec("1.12")).Equal(dec("1")))
	assert.True(t, r.Snap(dec("-2.3")).Equal(dec("-2.25")))

	assert.True(t, r.IsStepAligned(dec("1.25")))
	assert.True(t, r.IsStepAligned(dec("1.2505")))
	assert.False(t, r.IsStepAligned(dec("1.3")))
}

func TestRange_ContainsAndClamp(t *testing.T) {
	r := generic.NewRange(0, 180, 1)

	assert.True(t, r.Contains(dec("0")))
	assert.True(t, r.Contains(dec("180")))
	assert.False(t, r.Contains(dec("181")))
	assert.True(t, r.Clamp(dec("200")).Equal(dec("180")))
	assert.True(t, r.Clamp(dec("-5")).Equal(dec("0")))
	assert.True(t, r.Clamp(dec("90")).Equal(dec("90")))
}

func TestFormatSigned(t *testing.T) {
	assert.Equal(t, "+2.50", generic.FormatSigned(dec("2.5"), 2))
	assert.Equal(t, "-0.75", generic.FormatSigned(dec("-0.75"), 2))
	assert.Equal(t, "0.00", generic.FormatSigned(decimal.Zero, 2))
}

func TestValidationErrors_Unwrap(t *testing.T) {
	errs := generic.ValidationErrors{
		{Field: "rightEye.dv.sph", Code: generic.CodeStep, Message: "Must be in steps of 0.25"},
	}
	var err error = errs

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrValidation))
	assert.True(t, generic.IsClientError(err))
	assert.Contains(t, err.Error(), "rightEye.dv.sph")
}
