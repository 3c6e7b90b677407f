// Package prescription implements the optometric prescription record and the
// rules that keep it consistent while an operator edits it.
package prescription

import (
	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/acuity"
)

// =============================================================================
// FIELD LOCATOR
// =============================================================================

type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
)

type Vision string

const (
	VisionDistance Vision = "dv"
	VisionNear     Vision = "nv"
)

// Field names one column of an EyeMeasurement.
type Field string

const (
	FieldSph Field = "sph"
	FieldCyl Field = "cyl"
	FieldAx  Field = "ax"
	FieldAdd Field = "add"
	FieldVn  Field = "vn"
	FieldRPD Field = "rpd"
	FieldLPD Field = "lpd"
)

// Locator addresses a single eye-measurement field without string paths.
type Locator struct {
	Side   Side   `json:"side"`
	Vision Vision `json:"vision"`
	Field  Field  `json:"field"`
}

// Valid reports whether the locator addresses a field that exists.
// RPD only lives on the right distance row, LPD on the left one.
func (l Locator) Valid() bool {
	if l.Side != SideRight && l.Side != SideLeft {
		return false
	}
	if l.Vision != VisionDistance && l.Vision != VisionNear {
		return false
	}
	switch l.Field {
	case FieldSph, FieldCyl, FieldAx, FieldAdd, FieldVn:
		return true
	case FieldRPD:
		return l.Side == SideRight && l.Vision == VisionDistance
	case FieldLPD:
		return l.Side == SideLeft && l.Vision == VisionDistance
	}
	return false
}

// String renders the locator the way validation errors name fields,
// e.g. "rightEye.dv.sph".
func (l Locator) String() string {
	return string(l.Side) + "Eye." + string(l.Vision) + "." + string(l.Field)
}

// =============================================================================
// EYE MEASUREMENT - One row per eye x vision type
// =============================================================================

type EyeMeasurement struct {
	Sph string `json:"sph"`
	Cyl string `json:"cyl"`
	Ax  string `json:"ax"`
	Add string `json:"add"`
	Vn  string `json:"vn"`
	RPD string `json:"rpd,omitempty"`
	LPD string `json:"lpd,omitempty"`

	// Derived, never edited directly.
	SphericalEquivalent decimal.NullDecimal `json:"sphericalEquivalent"`
}

// Get returns the raw value of f.
func (m EyeMeasurement) Get(f Field) string {
	switch f {
	case FieldSph:
		return m.Sph
	case FieldCyl:
		return m.Cyl
	case FieldAx:
		return m.Ax
	case FieldAdd:
		return m.Add
	case FieldVn:
		return m.Vn
	case FieldRPD:
		return m.RPD
	case FieldLPD:
		return m.LPD
	}
	return ""
}

// With returns a copy of m with f set to value.
func (m EyeMeasurement) With(f Field, value string) EyeMeasurement {
	switch f {
	case FieldSph:
		m.Sph = value
	case FieldCyl:
		m.Cyl = value
	case FieldAx:
		m.Ax = value
	case FieldAdd:
		m.Add = value
	case FieldVn:
		m.Vn = value
	case FieldRPD:
		m.RPD = value
	case FieldLPD:
		m.LPD = value
	}
	return m
}

// Equal compares every field, the derived spherical equivalent included.
func (m EyeMeasurement) Equal(o EyeMeasurement) bool {
	if m.Sph != o.Sph || m.Cyl != o.Cyl || m.Ax != o.Ax || m.Add != o.Add ||
		m.Vn != o.Vn || m.RPD != o.RPD || m.LPD != o.LPD {
		return false
	}
	if m.SphericalEquivalent.Valid != o.SphericalEquivalent.Valid {
		return false
	}
	return !m.SphericalEquivalent.Valid ||
		m.SphericalEquivalent.Decimal.Equal(o.SphericalEquivalent.Decimal)
}

func emptyMeasurement(v Vision) EyeMeasurement {
	if v == VisionNear {
		return EyeMeasurement{Vn: acuity.NearDefault}
	}
	return EyeMeasurement{Vn: acuity.DistanceDefault}
}

// Eye groups the distance and near rows of one eye.
type Eye struct {
	DV EyeMeasurement `json:"dv"`
	NV EyeMeasurement `json:"nv"`
}

func (e Eye) Row(v Vision) EyeMeasurement {
	if v == VisionNear {
		return e.NV
	}
	return e.DV
}

func (e Eye) WithRow(v Vision, m EyeMeasurement) Eye {
	if v == VisionNear {
		e.NV = m
	} else {
		e.DV = m
	}
	return e
}

// =============================================================================
// REMARKS
// =============================================================================

type Remarks struct {
	ForConstantUse         bool `json:"forConstantUse"`
	ForDistanceVisionOnly  bool `json:"forDistanceVisionOnly"`
	ForNearVisionOnly      bool `json:"forNearVisionOnly"`
	ForOfficeUse           bool `json:"forOfficeUse"`
	ForSideVision          bool `json:"forSideVision"`
	RetestAfterExamination bool `json:"retestAfterExamination"`
	BifocalLens            bool `json:"bifocalLens"`
	ProgressiveLens        bool `json:"progressiveLens"`
	AntiReflectionLens     bool `json:"antiReflectionLens"`
}

type RemarkField string

const (
	RemarkForConstantUse         RemarkField = "forConstantUse"
	RemarkForDistanceVisionOnly  RemarkField = "forDistanceVisionOnly"
	RemarkForNearVisionOnly      RemarkField = "forNearVisionOnly"
	RemarkForOfficeUse           RemarkField = "forOfficeUse"
	RemarkForSideVision          RemarkField = "forSideVision"
	RemarkRetestAfterExamination RemarkField = "retestAfterExamination"
	RemarkBifocalLens            RemarkField = "bifocalLens"
	RemarkProgressiveLens        RemarkField = "progressiveLens"
	RemarkAntiReflectionLens     RemarkField = "antiReflectionLens"
)

// =============================================================================
// PRESCRIPTION RECORD
// =============================================================================

type Record struct {
	ID string `json:"id,omitempty"`

	PrescriptionNo string `json:"prescriptionNo"`
	ReferenceNo    string `json:"referenceNo"`
	Class          string `json:"class"`
	PrescribedBy   string `json:"prescribedBy"`
	Date           string `json:"date"`
	RetestAfter    string `json:"retestAfter"`
	CustomerID     string `json:"customerId"`

	Title         string `json:"title"`
	Name          string `json:"name"`
	Age           string `json:"age"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	PinCode       string `json:"pinCode"`
	PhoneLandline string `json:"phoneLandline"`
	MobileNo      string `json:"mobileNo"`
	Email         string `json:"email"`

	RightEye Eye `json:"rightEye"`
	LeftEye  Eye `json:"leftEye"`

	// IPD is derived from RPD and LPD.
	IPD string `json:"ipd"`

	Remarks     Remarks `json:"remarks"`
	BalanceLens bool    `json:"balanceLens"`
}

// NewRecord returns an empty record with the default VN placeholders.
func NewRecord() Record {
	return Record{
		RightEye: Eye{DV: emptyMeasurement(VisionDistance), NV: emptyMeasurement(VisionNear)},
		LeftEye:  Eye{DV: emptyMeasurement(VisionDistance), NV: emptyMeasurement(VisionNear)},
	}
}

func (r Record) Eye(s Side) Eye {
	if s == SideLeft {
		return r.LeftEye
	}
	return r.RightEye
}

func (r Record) WithEye(s Side, e Eye) Record {
	if s == SideLeft {
		r.LeftEye = e
	} else {
		r.RightEye = e
	}
	return r
}

// Row returns the measurement row addressed by side and vision.
func (r Record) Row(s Side, v Vision) EyeMeasurement {
	return r.Eye(s).Row(v)
}

func (r Record) WithRow(s Side, v Vision, m EyeMeasurement) Record {
	return r.WithEye(s, r.Eye(s).WithRow(v, m))
}

// sameDerived compares everything the derivation pass may touch.
func (r Record) sameDerived(o Record) bool {
	return r.IPD == o.IPD &&
		r.RightEye.DV.Equal(o.RightEye.DV) && r.RightEye.NV.Equal(o.RightEye.NV) &&
		r.LeftEye.DV.Equal(o.LeftEye.DV) && r.LeftEye.NV.Equal(o.LeftEye.NV)
}

var (
	sides   = []Side{SideRight, SideLeft}
	visions = []Vision{VisionDistance, VisionNear}
)
