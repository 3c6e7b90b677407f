/*
Package acuity implements Snellen visual-acuity handling.

PURPOSE:
  Distance acuity is written as a Snellen fraction, "6/9" in metric or
  "20/30" in imperial notation. This package normalizes both to the 6 m
  form, classifies the reading, converts it to a decimal, predicts what
  the patient should see given their refraction and age, and compares
  the two.

EXPECTED ACUITY MODEL:
  SE      = sph + cyl/2
  va      = 1.0 - |SE|*0.1 - |cyl|*0.05 - max(0, age-40)*0.005
  va      = clamp(va, 0.1, 1.0)
  result  = nearest standard Snellen line to va

  This is a screening heuristic, not a clinical prediction. A reading
  more than 0.1 worse than expected is flagged; more than 0.2 worse
  recommends referral.

NEAR ACUITY:
  Near rows use N-notation. Only "N" and the values in NearValues are
  accepted; anything else normalizes back to "N".

SEE ALSO:
  - tables.go: status sets, 20/x table and snapping steps
  - prescription/evaluate.go: runs this engine for each distance row
*/
package acuity

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/generic"
)

var (
	vnPattern       = regexp.MustCompile(`^(6/\d+(\.\d+)?|20/\d+)$`)
	metricPattern   = regexp.MustCompile(`^6/\d+(\.\d+)?$`)
	imperialPattern = regexp.MustCompile(`^20/(\d+)$`)
)

// ComparisonStatus describes how an actual reading relates to the expected one.
type ComparisonStatus string

const (
	BetterThanExpected ComparisonStatus = "Better than expected"
	AsExpected         ComparisonStatus = "As expected"
	WorseThanExpected  ComparisonStatus = "Worse than expected"
)

// Recommendations attached to a worse-than-expected reading.
const (
	RecommendReferral = "Consider referral for medical evaluation"
	RecommendMonitor  = "Monitor on next visit"
)

// Comparison is the result of Analyze.
type Comparison struct {
	Status         ComparisonStatus `json:"status"`
	Difference     float64          `json:"difference"`
	Recommendation string           `json:"recommendation,omitempty"`
}

// VisualAcuity is a derived, never persisted, view of a VN field.
type VisualAcuity struct {
	Fraction             string      `json:"fraction"`
	Status               Status      `json:"status"`
	DecimalValue         float64     `json:"decimalValue"`
	EquivalentValue      string      `json:"equivalentValue,omitempty"`
	ComparisonToExpected *Comparison `json:"comparisonToExpected,omitempty"`
}

// Refraction carries the inputs of the expected-acuity model as raw field values.
type Refraction struct {
	Sph string `json:"sph"`
	Cyl string `json:"cyl"`
	Age string `json:"age"`
}

// =============================================================================
// NOTATION
// =============================================================================

// NormalizeVa returns the 6 m form of a Snellen fraction. Metric fractions
// pass through unchanged; imperial ones go through the conversion table, or
// through d*6/20 when the denominator is not a standard line. Anything else
// is returned trimmed but otherwise untouched.
func NormalizeVa(value string) string {
	v := strings.TrimSpace(value)
	if metricPattern.MatchString(v) {
		return v
	}
	m := imperialPattern.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	if metric, ok := imperialToMetric[v]; ok {
		return metric
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return v
	}
	return "6/" + d.Mul(decimal.NewFromInt(6)).Div(decimal.NewFromInt(20)).Round(1).String()
}

// Equivalent returns the 20 ft form of a metric fraction, or "" when the
// fraction cannot be read.
func Equivalent(fraction string) string {
	f := NormalizeVa(fraction)
	if imperial, ok := metricToImperial[f]; ok {
		return imperial
	}
	num, den, ok := split(f)
	if !ok || num != 6 {
		return ""
	}
	return "20/" + strconv.Itoa(int(math.Round(den*20/6)))
}

// GetStatus classifies a fraction by set membership. Unknown fractions are
// Severely reduced.
func GetStatus(fraction string) Status {
	f := NormalizeVa(fraction)
	for _, set := range statusSets {
		for _, candidate := range set.fractions {
			if candidate == f {
				return set.status
			}
		}
	}
	return StatusSeverelyReduced
}

// DecimalVa is numerator/denominator of the normalized fraction, 0 when the
// fraction cannot be read.
func DecimalVa(fraction string) float64 {
	num, den, ok := split(NormalizeVa(fraction))
	if !ok {
		return 0
	}
	return num / den
}

func split(fraction string) (float64, float64, bool) {
	parts := strings.Split(fraction, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den <= 0 {
		return 0, 0, false
	}
	return num, den, true
}

// statusForDecimal applies the decimal thresholds used by ExpectedVa.
func statusForDecimal(va float64) Status {
	switch {
	case va >= normalThreshold:
		return StatusNormal
	case va >= slightlyReducedThreshold:
		return StatusSlightlyReduced
	case va >= reducedThreshold:
		return StatusReduced
	default:
		return StatusSeverelyReduced
	}
}

// =============================================================================
// EXPECTED ACUITY
// =============================================================================

// ExpectedVa predicts the acuity for a refraction and age. It returns nil
// when any input is not a number.
func ExpectedVa(sph, cyl, age string) *VisualAcuity {
	s, ok := generic.ParseDecimal(sph)
	if !ok {
		return nil
	}
	c, ok := generic.ParseDecimal(cyl)
	if !ok {
		return nil
	}
	a, ok := generic.ParseDecimal(age)
	if !ok {
		return nil
	}

	se := s.Add(c.Div(decimal.NewFromInt(2)))
	va := decimal.NewFromInt(1).
		Sub(se.Abs().Mul(decimal.RequireFromString("0.1"))).
		Sub(c.Abs().Mul(decimal.RequireFromString("0.05")))
	if over := a.Sub(decimal.NewFromInt(40)); over.IsPositive() {
		va = va.Sub(over.Mul(decimal.RequireFromString("0.005")))
	}
	clamped, _ := generic.Range{
		Min: decimal.RequireFromString("0.1"),
		Max: decimal.NewFromInt(1),
	}.Clamp(va).Float64()

	best := snellenSteps[0]
	for _, step := range snellenSteps[1:] {
		if math.Abs(step.decimal-clamped) < math.Abs(best.decimal-clamped) {
			best = step
		}
	}

	return &VisualAcuity{
		Fraction:        best.fraction,
		Status:          statusForDecimal(best.decimal),
		DecimalValue:    best.decimal,
		EquivalentValue: Equivalent(best.fraction),
	}
}

// Analyze compares an actual reading with the expected one. Missing input
// on either side counts as as-expected.
func Analyze(actual, expected *VisualAcuity) Comparison {
	if actual == nil || expected == nil {
		return Comparison{Status: AsExpected}
	}
	diff := actual.DecimalValue - expected.DecimalValue
	out := Comparison{Difference: math.Round(diff*100) / 100}
	switch {
	case diff > 0.1:
		out.Status = BetterThanExpected
	case diff < -0.1:
		out.Status = WorseThanExpected
		if diff < -0.2 {
			out.Recommendation = RecommendReferral
		} else {
			out.Recommendation = RecommendMonitor
		}
	default:
		out.Status = AsExpected
	}
	return out
}

// ValidateAndFormatVn builds the full acuity view of a VN field. It returns
// nil for blank or unreadable input. When refraction is supplied and
// parses, the comparison to the expected acuity is attached.
func ValidateAndFormatVn(value string, refraction *Refraction) *VisualAcuity {
	v := strings.TrimSpace(value)
	if v == "" || !vnPattern.MatchString(v) {
		return nil
	}
	fraction := NormalizeVa(v)
	va := &VisualAcuity{
		Fraction:        fraction,
		Status:          GetStatus(fraction),
		DecimalValue:    DecimalVa(fraction),
		EquivalentValue: Equivalent(fraction),
	}
	if refraction != nil {
		if expected := ExpectedVa(refraction.Sph, refraction.Cyl, refraction.Age); expected != nil {
			cmp := Analyze(va, expected)
			va.ComparisonToExpected = &cmp
		}
	}
	return va
}

// =============================================================================
// NEAR NOTATION
// =============================================================================

// IsNearVn reports whether v is "N" or one of NearValues.
func IsNearVn(v string) bool {
	v = strings.TrimSpace(v)
	if v == NearDefault {
		return true
	}
	for _, n := range NearValues {
		if n == v {
			return true
		}
	}
	return false
}

// NormalizeNearVn returns v upper-cased when it is a valid near notation,
// and "N" otherwise.
func NormalizeNearVn(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if IsNearVn(v) {
		return v
	}
	return NearDefault
}
