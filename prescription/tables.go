/*
tables.go - Range and threshold configuration

PURPOSE:
  Every numeric rule of the engine reads its limits from a Tables value:
  the accepted range and step of each field kind, the high-prescription
  alert bounds, and which IPD policy the derivation pass uses.

  DefaultTables() carries the shop defaults. factory.ParseTables overrides
  any subset of them from JSON, so a shop can tighten or widen a range
  without a code change.

DEFAULTS:
  Kind   Min     Max    Step
  SPH    -30.00  30.00  0.25
  CYL    -10.00  10.00  0.25
  AXIS   0       180    1
  ADD    0.00    4.00   0.25
  PD     25.0    40.0   0.5

  Alerts: |SPH| > 20, |CYL| > 6

SEE ALSO:
  - factory/tables.go: JSON overrides
  - format.go, validate.go, derive.go: consumers
*/
package prescription

import (
	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/generic"
)

// FieldKind selects the numeric domain a value is checked against.
type FieldKind string

const (
	KindSph  FieldKind = "sph"
	KindCyl  FieldKind = "cyl"
	KindAxis FieldKind = "axis"
	KindAdd  FieldKind = "add"
	KindPD   FieldKind = "pd"
)

// Kinds lists every field kind with a configured range.
var Kinds = []FieldKind{KindSph, KindCyl, KindAxis, KindAdd, KindPD}

// KindOf maps an eye-measurement field to its numeric kind. VN has none.
func KindOf(f Field) (FieldKind, bool) {
	switch f {
	case FieldSph:
		return KindSph, true
	case FieldCyl:
		return KindCyl, true
	case FieldAx:
		return KindAxis, true
	case FieldAdd:
		return KindAdd, true
	case FieldRPD, FieldLPD:
		return KindPD, true
	}
	return "", false
}

// IPDPolicy selects how the record's IPD is derived from RPD and LPD.
type IPDPolicy string

const (
	// IPDLive sums whatever is present and clears only when both sides are blank.
	IPDLive IPDPolicy = "live"
	// IPDStrict clears unless both sides are numbers inside the PD range.
	IPDStrict IPDPolicy = "strict"
)

func (p IPDPolicy) Valid() bool {
	return p == IPDLive || p == IPDStrict
}

// Alert is an inclusive band outside of which a power is flagged as high.
type Alert struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (a Alert) Exceeded(d decimal.Decimal) bool {
	return d.LessThan(a.Min) || d.GreaterThan(a.Max)
}

type Tables struct {
	Ranges    map[FieldKind]generic.Range `json:"ranges"`
	SphAlert  Alert                       `json:"sphAlert"`
	CylAlert  Alert                       `json:"cylAlert"`
	IPDPolicy IPDPolicy                   `json:"ipdPolicy"`
}

// DefaultTables returns a fresh copy of the built-in tables.
func DefaultTables() Tables {
	return Tables{
		Ranges: map[FieldKind]generic.Range{
			KindSph:  generic.NewRange(-30, 30, 0.25),
			KindCyl:  generic.NewRange(-10, 10, 0.25),
			KindAxis: generic.NewRange(0, 180, 1),
			KindAdd:  generic.NewRange(0, 4, 0.25),
			KindPD:   generic.NewRange(25, 40, 0.5),
		},
		SphAlert:  Alert{Min: decimal.NewFromInt(-20), Max: decimal.NewFromInt(20)},
		CylAlert:  Alert{Min: decimal.NewFromInt(-6), Max: decimal.NewFromInt(6)},
		IPDPolicy: IPDLive,
	}
}

// Range returns the configured range for kind, falling back to the default.
func (t Tables) Range(kind FieldKind) generic.Range {
	if r, ok := t.Ranges[kind]; ok {
		return r
	}
	return DefaultTables().Ranges[kind]
}

// Clone returns a deep copy so callers can override ranges safely.
func (t Tables) Clone() Tables {
	out := t
	out.Ranges = make(map[FieldKind]generic.Range, len(t.Ranges))
	for k, v := range t.Ranges {
		out.Ranges[k] = v
	}
	return out
}

var defaultTables = DefaultTables()
