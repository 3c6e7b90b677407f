package prescription

import (
	"fmt"

	"github.com/warp/optical-engine/generic"
)

// Formatting is lenient, validation is strict: FormatPrescriptionNumber turns
// garbage into "" silently while ValidateNumericField reports it.

// FormatPrescriptionNumber rounds value to the nearest step of kind and
// renders it with two decimals and an explicit '+' when positive, the same
// way NearVisionSph writes its result. Blank or non-numeric input yields "".
// Axis values are delegated to FormatAxis.
func (t Tables) FormatPrescriptionNumber(value string, kind FieldKind) string {
	if kind == KindAxis {
		return t.FormatAxis(value)
	}
	d, ok := generic.ParseDecimal(value)
	if !ok {
		return ""
	}
	return generic.FormatSigned(t.Range(kind).Snap(d), 2)
}

// FormatAxis renders an axis as a whole number of degrees. Out-of-range
// values clamp to the nearest bound instead of being rejected.
func (t Tables) FormatAxis(value string) string {
	d, ok := generic.ParseDecimal(value)
	if !ok {
		return ""
	}
	return t.Range(KindAxis).Clamp(d.Round(0)).StringFixed(0)
}

// ValidateNumericField checks a single value against kind. It returns nil
// when the value is acceptable.
func (t Tables) ValidateNumericField(value string, kind FieldKind, required bool) *generic.FieldError {
	field := string(kind)
	if generic.IsBlank(value) {
		if required {
			return &generic.FieldError{Field: field, Code: generic.CodeRequired, Message: "Field is required"}
		}
		return nil
	}
	d, ok := generic.ParseDecimal(value)
	if !ok {
		return &generic.FieldError{Field: field, Code: generic.CodeNotANumber, Message: "Must be a number"}
	}
	r := t.Range(kind)
	if d.LessThan(r.Min) {
		return &generic.FieldError{Field: field, Code: generic.CodeBelowMin,
			Message: fmt.Sprintf("Must be at least %s", r.Min)}
	}
	if d.GreaterThan(r.Max) {
		return &generic.FieldError{Field: field, Code: generic.CodeAboveMax,
			Message: fmt.Sprintf("Must be at most %s", r.Max)}
	}
	if !r.IsStepAligned(d) {
		return &generic.FieldError{Field: field, Code: generic.CodeStep,
			Message: fmt.Sprintf("Must be in steps of %s", r.Step)}
	}
	return nil
}

// Package-level shorthands over DefaultTables.

func FormatPrescriptionNumber(value string, kind FieldKind) string {
	return defaultTables.FormatPrescriptionNumber(value, kind)
}

func FormatAxis(value string) string {
	return defaultTables.FormatAxis(value)
}

func ValidateNumericField(value string, kind FieldKind, required bool) *generic.FieldError {
	return defaultTables.ValidateNumericField(value, kind, required)
}
