package prescription

import (
	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/generic"
)

// EyeEvaluation is the read-only classification of one eye.
type EyeEvaluation struct {
	// Acuity is nil when the distance VN is blank or not a Snellen fraction.
	Acuity           *acuity.VisualAcuity `json:"acuity"`
	HighPrescription HighPrescription     `json:"highPrescription"`
	PDWarnings       []string             `json:"pdWarnings,omitempty"`
}

// Evaluation is the classification stage run after DeriveAll. It never
// changes the record.
type Evaluation struct {
	RightEye EyeEvaluation            `json:"rightEye"`
	LeftEye  EyeEvaluation            `json:"leftEye"`
	Errors   generic.ValidationErrors `json:"errors"`
	Valid    bool                     `json:"valid"`
}

// Evaluate classifies r: VA per distance row, compared with the VA expected
// for its refraction when the age is known, high-prescription warnings per
// eye, PD warnings and submission validation.
func (t Tables) Evaluate(r Record) Evaluation {
	errs := t.ValidateRecord(r)
	return Evaluation{
		RightEye: t.evaluateEye(r, SideRight),
		LeftEye:  t.evaluateEye(r, SideLeft),
		Errors:   errs,
		Valid:    len(errs) == 0,
	}
}

func (t Tables) evaluateEye(r Record, s Side) EyeEvaluation {
	dv := r.Row(s, VisionDistance)
	var refraction *acuity.Refraction
	if !generic.IsBlank(r.Age) {
		// blank powers are plano
		refraction = &acuity.Refraction{Sph: orZero(dv.Sph), Cyl: orZero(dv.Cyl), Age: r.Age}
	}

	out := EyeEvaluation{
		Acuity:           acuity.ValidateAndFormatVn(dv.Vn, refraction),
		HighPrescription: t.CheckHighPrescription(dv.Sph, dv.Cyl),
	}
	if s == SideRight {
		out.PDWarnings = t.PDWarnings(dv.RPD, "")
	} else {
		out.PDWarnings = t.PDWarnings("", dv.LPD)
	}
	return out
}

func orZero(v string) string {
	if generic.IsBlank(v) {
		return "0"
	}
	return v
}

func Evaluate(r Record) Evaluation {
	return defaultTables.Evaluate(r)
}
