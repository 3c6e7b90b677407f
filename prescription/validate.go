package prescription

import (
	"regexp"
	"strings"

	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/generic"
)

var (
	distanceVnPattern = regexp.MustCompile(`^(6/\d+(\.\d+)?|20/\d+)$`)
	mobilePattern     = regexp.MustCompile(`^\+?\d{10,13}$`)
)

// ValidateRow checks one measurement row. Field names in the returned errors
// are locator paths such as "leftEye.dv.ax".
func (t Tables) ValidateRow(s Side, v Vision, m EyeMeasurement) []generic.FieldError {
	var errs []generic.FieldError
	add := func(f Field, e *generic.FieldError) {
		if e != nil {
			e.Field = Locator{Side: s, Vision: v, Field: f}.String()
			errs = append(errs, *e)
		}
	}

	add(FieldSph, t.ValidateNumericField(m.Sph, KindSph, false))
	add(FieldCyl, t.ValidateNumericField(m.Cyl, KindCyl, false))
	add(FieldAdd, t.ValidateNumericField(m.Add, KindAdd, false))
	if v == VisionDistance {
		add(FieldAx, t.validateAxis(m))
	} else {
		// a derived near row may carry the cylinder without an axis
		add(FieldAx, t.ValidateNumericField(m.Ax, KindAxis, false))
	}

	// PD has an alert band but no hard lower bound; only numeric-ness is enforced.
	if v == VisionDistance {
		for _, f := range []Field{FieldRPD, FieldLPD} {
			raw := m.Get(f)
			if _, ok := generic.ParseDecimal(raw); !generic.IsBlank(raw) && !ok {
				add(f, &generic.FieldError{Code: generic.CodeNotANumber, Message: "Must be a number"})
			}
		}
	}

	add(FieldVn, validateVn(v, m.Vn))
	return errs
}

// validateAxis requires an axis in [1, 180] whenever the cylinder is non-zero.
// Only distance rows are held to it.
func (t Tables) validateAxis(m EyeMeasurement) *generic.FieldError {
	if generic.IsZeroOrBlank(m.Cyl) {
		return t.ValidateNumericField(m.Ax, KindAxis, false)
	}
	if _, ok := generic.ParseDecimal(m.Cyl); !ok {
		// the cylinder itself is reported; the axis cannot be judged
		return nil
	}
	if generic.IsBlank(m.Ax) {
		return &generic.FieldError{Code: generic.CodeAxisRequired, Message: "Axis is required when cylinder is set"}
	}
	if e := t.ValidateNumericField(m.Ax, KindAxis, true); e != nil {
		return e
	}
	if generic.MustParseDecimal(m.Ax).IsZero() {
		return &generic.FieldError{Code: generic.CodeBelowMin, Message: "Must be at least 1"}
	}
	return nil
}

func validateVn(v Vision, vn string) *generic.FieldError {
	vn = strings.TrimSpace(vn)
	if v == VisionNear {
		if vn == "" || acuity.IsNearVn(vn) {
			return nil
		}
		return &generic.FieldError{Code: generic.CodeInvalidVn, Message: "Must be N or one of " + strings.Join(acuity.NearValues, ", ")}
	}
	if vn == "" || vn == acuity.DistanceDefault || distanceVnPattern.MatchString(vn) {
		return nil
	}
	return &generic.FieldError{Code: generic.CodeInvalidVn, Message: "Must be a Snellen fraction such as 6/6 or 20/20"}
}

// ValidateRecord checks everything that blocks submission. A nil result
// means the record may be saved.
func (t Tables) ValidateRecord(r Record) generic.ValidationErrors {
	var errs generic.ValidationErrors

	if generic.IsBlank(r.Name) {
		errs = append(errs, generic.FieldError{Field: "name", Code: generic.CodeRequired, Message: "Field is required"})
	}
	if !generic.IsBlank(r.Age) {
		age, ok := generic.ParseDecimal(r.Age)
		if !ok || age.IsNegative() || age.IntPart() > 130 {
			errs = append(errs, generic.FieldError{Field: "age", Code: generic.CodeInvalid, Message: "Must be an age in years"})
		}
	}
	if mobile := strings.ReplaceAll(r.MobileNo, " ", ""); mobile != "" && !mobilePattern.MatchString(mobile) {
		errs = append(errs, generic.FieldError{Field: "mobileNo", Code: generic.CodeInvalid, Message: "Must be a 10 to 13 digit phone number"})
	}

	for _, s := range sides {
		for _, v := range visions {
			errs = append(errs, t.ValidateRow(s, v, r.Row(s, v))...)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidateRecord(r Record) generic.ValidationErrors {
	return defaultTables.ValidateRecord(r)
}
