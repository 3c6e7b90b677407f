package prescription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/optical-engine/generic"
	rx "github.com/warp/optical-engine/prescription"
)

func TestFormatPrescriptionNumber(t *testing.T) {
	cases := []struct {
		value string
		kind  rx.FieldKind
		want  string
	}{
		{"-1.3", rx.KindSph, "-1.25"},
		{"+2", rx.KindSph, "+2.00"},
		{"0", rx.KindCyl, "0.00"},
		{"-0.6", rx.KindCyl, "-0.50"},
		{"1.1", rx.KindAdd, "+1.00"},
		{"", rx.KindSph, ""},
		{"abc", rx.KindSph, ""},
		{"90.4", rx.KindAxis, "90"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rx.FormatPrescriptionNumber(tc.value, tc.kind), "%s %q", tc.kind, tc.value)
	}
}

func TestFormatAxis_ClampsInsteadOfRejecting(t *testing.T) {
	assert.Equal(t, "180", rx.FormatAxis("250"))
	assert.Equal(t, "0", rx.FormatAxis("-5"))
	assert.Equal(t, "45", rx.FormatAxis("45"))
	assert.Equal(t, "", rx.FormatAxis("x"))
}

func TestValidateNumericField(t *testing.T) {
	// Empty and optional is fine
	assert.Nil(t, rx.ValidateNumericField("", rx.KindSph, false))

	cases := []struct {
		name     string
		value    string
		kind     rx.FieldKind
		required bool
		code     string
		message  string
	}{
		{"required", " ", rx.KindSph, true, generic.CodeRequired, "Field is required"},
		{"not a number", "abc", rx.KindCyl, false, generic.CodeNotANumber, "Must be a number"},
		{"above max", "31", rx.KindSph, false, generic.CodeAboveMax, "Must be at most 30"},
		{"below min", "-10.25", rx.KindCyl, false, generic.CodeBelowMin, "Must be at least -10"},
		{"off step", "1.1", rx.KindSph, false, generic.CodeStep, "Must be in steps of 0.25"},
		{"add negative", "-0.25", rx.KindAdd, false, generic.CodeBelowMin, "Must be at least 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rx.ValidateNumericField(tc.value, tc.kind, tc.required)
			require.NotNil(t, err)
			assert.Equal(t, tc.code, err.Code)
			assert.Equal(t, tc.message, err.Message)
		})
	}

	for _, ok := range []string{"-1.25", "+2.00", "0", "30", "-30"} {
		assert.Nil(t, rx.ValidateNumericField(ok, rx.KindSph, true), ok)
	}
}

func TestValidateRow_AxisRequiredWithCylinder(t *testing.T) {
	tables := rx.DefaultTables()

	// GIVEN: a non-zero cylinder
	row := rx.EyeMeasurement{Sph: "-1.00", Cyl: "-0.50", Vn: "6/"}

	// WHEN: the axis is missing, zero, or out of range
	// THEN: the axis is reported
	for ax, code := range map[string]string{
		"":    generic.CodeAxisRequired,
		"0":   generic.CodeBelowMin,
		"181": generic.CodeAboveMax,
		"abc": generic.CodeNotANumber,
	} {
		row.Ax = ax
		errs := tables.ValidateRow(rx.SideLeft, rx.VisionDistance, row)
		require.Len(t, errs, 1, "ax %q", ax)
		assert.Equal(t, "leftEye.dv.ax", errs[0].Field)
		assert.Equal(t, code, errs[0].Code, "ax %q", ax)
	}

	row.Ax = "180"
	assert.Empty(t, tables.ValidateRow(rx.SideLeft, rx.VisionDistance, row))

	// Zero cylinder needs no axis
	assert.Empty(t, tables.ValidateRow(rx.SideLeft, rx.VisionDistance, rx.EyeMeasurement{Cyl: "0", Vn: "6/"}))

	// A near row derived from a cylinder without axis carries no axis
	near := rx.EyeMeasurement{Sph: "+1.00", Cyl: "-0.50", Vn: "N"}
	assert.Empty(t, tables.ValidateRow(rx.SideLeft, rx.VisionNear, near))
	near.Ax = "181"
	errs := tables.ValidateRow(rx.SideLeft, rx.VisionNear, near)
	require.Len(t, errs, 1)
	assert.Equal(t, generic.CodeAboveMax, errs[0].Code)
}

func TestValidateRow_Vn(t *testing.T) {
	tables := rx.DefaultTables()

	for _, vn := range []string{"", "6/", "6/6", "6/7.5", "20/40"} {
		assert.Empty(t, tables.ValidateRow(rx.SideRight, rx.VisionDistance, rx.EyeMeasurement{Vn: vn}), vn)
	}
	for _, vn := range []string{"N6", "20/7.5", "6/x"} {
		errs := tables.ValidateRow(rx.SideRight, rx.VisionDistance, rx.EyeMeasurement{Vn: vn})
		require.Len(t, errs, 1, vn)
		assert.Equal(t, generic.CodeInvalidVn, errs[0].Code, vn)
	}

	for _, vn := range []string{"N", "N5", "N24"} {
		assert.Empty(t, tables.ValidateRow(rx.SideRight, rx.VisionNear, rx.EyeMeasurement{Vn: vn}), vn)
	}
	errs := tables.ValidateRow(rx.SideRight, rx.VisionNear, rx.EyeMeasurement{Vn: "N7"})
	require.Len(t, errs, 1)
	assert.Equal(t, "rightEye.nv.vn", errs[0].Field)
}

func TestValidateRecord(t *testing.T) {
	r := rx.NewRecord()
	errs := rx.ValidateRecord(r)
	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Field)
	assert.ErrorIs(t, errs, generic.ErrValidation)

	r.Name = "A. Patient"
	r.MobileNo = "98765 43210"
	r.Age = "42"
	assert.Nil(t, rx.ValidateRecord(r))

	r.MobileNo = "12345"
	r.Age = "200"
	r.RightEye.DV.RPD = "thirty"
	errs = rx.ValidateRecord(r)
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"age", "mobileNo", "rightEye.dv.rpd"}, fields)
}
