/*
Package generic provides the numeric primitives shared by the optical engines.

PURPOSE:
  Prescription fields arrive as operator-typed strings ("-1.25", "+2",
  "90", "31.5"). Every engine needs the same handful of operations on
  them: lenient parsing, range membership, clamping, snapping to a step
  and signed formatting. Those live here so the prescription and billing
  packages never touch float arithmetic for diopters, millimetres or money.

KEY CONCEPTS IN THIS FILE (types.go):
  - ParseDecimal: blank-tolerant, sign-tolerant parse of a field value
  - Range: inclusive [Min, Max] domain with a Step grid
  - FormatSigned: "+2.50" / "-0.75" / "0.00" rendering

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 for stored values
  2. Totality: parsing reports ok=false instead of returning an error
  3. Immutability: Range methods return new values

SEE ALSO:
  - errors.go: FieldError and the sentinel errors
  - prescription/tables.go: the concrete ranges for SPH, CYL, AXIS, ADD, PD
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StepTolerance is how far a value may sit from the step grid and still be
// considered aligned.
var StepTolerance = decimal.RequireFromString("0.001")

// =============================================================================
// PARSING
// =============================================================================

// IsBlank reports whether a raw field value carries no content.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ParseDecimal parses a raw field value. A leading '+' is accepted since
// optometric notation writes positive powers with an explicit sign.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-+") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// MustParseDecimal parses s, returning zero when it is not a number.
func MustParseDecimal(s string) decimal.Decimal {
	d, _ := ParseDecimal(s)
	return d
}

// IsZeroOrBlank reports whether s is empty or parses to zero.
// Non-numeric content is neither.
func IsZeroOrBlank(s string) bool {
	if IsBlank(s) {
		return true
	}
	d, ok := ParseDecimal(s)
	return ok && d.IsZero()
}

// =============================================================================
// RANGE - Inclusive numeric domain with a step grid
// =============================================================================

type Range struct {
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Step decimal.Decimal `json:"step"`
}

func NewRange(min, max, step float64) Range {
	return Range{
		Min:  decimal.NewFromFloat(min),
		Max:  decimal.NewFromFloat(max),
		Step: decimal.NewFromFloat(step),
	}
}

func (r Range) Contains(d decimal.Decimal) bool {
	return !d.LessThan(r.Min) && !d.GreaterThan(r.Max)
}

func (r Range) Clamp(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(r.Min) {
		return r.Min
	}
	if d.GreaterThan(r.Max) {
		return r.Max
	}
	return d
}

// Snap rounds d to the nearest multiple of Step. A range without a step
// returns d unchanged.
func (r Range) Snap(d decimal.Decimal) decimal.Decimal {
	if !r.Step.IsPositive() {
		return d
	}
	return d.Div(r.Step).Round(0).Mul(r.Step)
}

// IsStepAligned reports whether d sits on the step grid within StepTolerance.
func (r Range) IsStepAligned(d decimal.Decimal) bool {
	return d.Sub(r.Snap(d)).Abs().LessThanOrEqual(StepTolerance)
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatSigned renders d with a fixed number of decimals and an explicit '+'
// for positive values. Zero carries no sign.
func FormatSigned(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.Round(places).IsPositive() {
		return "+" + s
	}
	return s
}
