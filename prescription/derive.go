/*
derive.go - Dependent-field derivations

PURPOSE:
  Fields an operator never types directly: the near-vision row built from
  distance SPH + ADD, the spherical equivalent of each row, the total
  pupillary distance, and the left eye mirrored from the right one when
  the balance-lens flag is on.

TOTALITY:
  Every function here is total. Malformed input produces "" or an invalid
  NullDecimal, never an error, so callers can run them on every keystroke.

IPD POLICIES:
  Two policies coexist and are both exported:
  - TotalPD (strict): "" unless both values are numbers inside the PD range
  - LiveIPD (live):   sums what is present, "" only when both are blank
  Tables.IPDPolicy picks the one DeriveAll uses.

SEE ALSO:
  - reducer.go: runs these in a fixed order after each edit
  - tables.go: PD range and alert thresholds
*/
package prescription

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/generic"
)

// =============================================================================
// NEAR VISION
// =============================================================================

// NearVisionSph is dvSph + add, "" unless both are numbers. Positive results
// carry an explicit '+'.
func NearVisionSph(dvSph, add string) string {
	s, ok := generic.ParseDecimal(dvSph)
	if !ok {
		return ""
	}
	a, ok := generic.ParseDecimal(add)
	if !ok {
		return ""
	}
	return generic.FormatSigned(s.Add(a), 2)
}

// DeriveNearVision builds the near row from the distance row after its ADD
// field is committed. The cases are checked in order:
//
//	(a) SPH, CYL, AX and ADD present: cylinder and axis are copied
//	(b) CYL blank or zero:            cylinder and axis are cleared
//	(c) CYL set, AX missing:          cylinder copied, axis cleared
//
// The second result is false when ADD is blank or no case applies; nv is
// then returned unchanged.
func DeriveNearVision(dv, nv EyeMeasurement) (EyeMeasurement, bool) {
	if generic.IsBlank(dv.Add) {
		return nv, false
	}
	hasSph := !generic.IsBlank(dv.Sph)
	hasCyl := !generic.IsBlank(dv.Cyl)
	hasAx := !generic.IsBlank(dv.Ax)

	out := EyeMeasurement{
		Sph: NearVisionSph(dv.Sph, dv.Add),
		Vn:  acuity.NearDefault,
	}
	switch {
	case hasSph && hasCyl && hasAx:
		out.Cyl = dv.Cyl
		out.Ax = dv.Ax
	case generic.IsZeroOrBlank(dv.Cyl):
	case !hasAx:
		out.Cyl = dv.Cyl
	default:
		return nv, false
	}
	return out, true
}

// =============================================================================
// SPHERICAL EQUIVALENT
// =============================================================================

// SphericalEquivalent is sph + cyl/2, invalid if either is not a number.
func SphericalEquivalent(sph, cyl string) decimal.NullDecimal {
	s, ok := generic.ParseDecimal(sph)
	if !ok {
		return decimal.NullDecimal{}
	}
	c, ok := generic.ParseDecimal(cyl)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(s.Add(c.Div(decimal.NewFromInt(2))))
}

// =============================================================================
// PUPILLARY DISTANCE
// =============================================================================

// TotalPD is rpd + lpd to one decimal, "" when either side is not a number
// inside the configured PD range.
func (t Tables) TotalPD(rpd, lpd string) string {
	r, ok := generic.ParseDecimal(rpd)
	if !ok {
		return ""
	}
	l, ok := generic.ParseDecimal(lpd)
	if !ok {
		return ""
	}
	pd := t.Range(KindPD)
	if !pd.Contains(r) || !pd.Contains(l) {
		return ""
	}
	return r.Add(l).StringFixed(1)
}

// LiveIPD sums whichever of rpd and lpd is a number. It clears only when
// both are blank; a side that is blank or unreadable counts as zero.
func LiveIPD(rpd, lpd string) string {
	if generic.IsBlank(rpd) && generic.IsBlank(lpd) {
		return ""
	}
	r, rok := generic.ParseDecimal(rpd)
	l, lok := generic.ParseDecimal(lpd)
	if !rok && !lok {
		return ""
	}
	return r.Add(l).StringFixed(1)
}

// IPD applies the configured policy.
func (t Tables) IPD(rpd, lpd string) string {
	if t.IPDPolicy == IPDStrict {
		return t.TotalPD(rpd, lpd)
	}
	return LiveIPD(rpd, lpd)
}

func TotalPD(rpd, lpd string) string {
	return defaultTables.TotalPD(rpd, lpd)
}

// PDWarnings flags half-distances outside the PD band. They are warnings,
// not validation errors.
func (t Tables) PDWarnings(rpd, lpd string) []string {
	pd := t.Range(KindPD)
	var warnings []string
	for _, side := range []struct{ name, value string }{{"RPD", rpd}, {"LPD", lpd}} {
		d, ok := generic.ParseDecimal(side.value)
		if !ok || pd.Contains(d) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s %s mm is outside the usual range of %s-%s mm",
			side.name, d.StringFixed(1), pd.Min.StringFixed(1), pd.Max.StringFixed(1)))
	}
	return warnings
}

// =============================================================================
// BALANCE LENS
// =============================================================================

// MirrorBalanceLens copies the right eye onto the left one when the
// balance-lens flag is set. LPD is kept; the left eye has its own pupil.
func MirrorBalanceLens(r Record) Record {
	if !r.BalanceLens {
		return r
	}
	lpd := r.LeftEye.DV.LPD
	left := r.RightEye
	left.DV.RPD = ""
	left.DV.LPD = lpd
	r.LeftEye = left
	return r
}

// =============================================================================
// SPECIAL CASES
// =============================================================================

// HandleSpecialCases clears the axis of a row without cylinder, clamps ADD
// into its range and recomputes the spherical equivalent.
func (t Tables) HandleSpecialCases(m EyeMeasurement) EyeMeasurement {
	if generic.IsZeroOrBlank(m.Cyl) {
		m.Ax = ""
	}
	if add, ok := generic.ParseDecimal(m.Add); ok {
		r := t.Range(KindAdd)
		if !r.Contains(add) {
			m.Add = generic.FormatSigned(r.Clamp(add), 2)
		}
	}
	m.SphericalEquivalent = SphericalEquivalent(m.Sph, m.Cyl)
	return m
}

func HandleSpecialCases(m EyeMeasurement) EyeMeasurement {
	return defaultTables.HandleSpecialCases(m)
}

// =============================================================================
// HIGH PRESCRIPTION
// =============================================================================

type HighPrescription struct {
	IsHigh   bool     `json:"isHigh"`
	Warnings []string `json:"warnings"`
}

// CheckHighPrescription flags SPH and CYL outside the alert bands. Both
// checks run independently.
func (t Tables) CheckHighPrescription(sph, cyl string) HighPrescription {
	out := HighPrescription{Warnings: []string{}}
	if s, ok := generic.ParseDecimal(sph); ok && t.SphAlert.Exceeded(s) {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"High spherical power %sD is outside %s to %sD", generic.FormatSigned(s, 2),
			generic.FormatSigned(t.SphAlert.Min, 2), generic.FormatSigned(t.SphAlert.Max, 2)))
	}
	if c, ok := generic.ParseDecimal(cyl); ok && t.CylAlert.Exceeded(c) {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"High cylindrical power %sD is outside %s to %sD", generic.FormatSigned(c, 2),
			generic.FormatSigned(t.CylAlert.Min, 2), generic.FormatSigned(t.CylAlert.Max, 2)))
	}
	out.IsHigh = len(out.Warnings) > 0
	return out
}

func CheckHighPrescription(sph, cyl string) HighPrescription {
	return defaultTables.CheckHighPrescription(sph, cyl)
}
