/*
reducer.go - Pure record updates

PURPOSE:
  Every edit produces a new Record; nothing is mutated in place. An edit
  runs in a fixed order:

    1. raw field update
    2. range/step normalization (commit only)
    3. near-vision derivation (commit of a distance ADD only)
    4. DeriveAll: balance-lens mirror -> special cases -> SE -> IPD,
       repeated until the record stops changing

  Classification (acuity, high-prescription warnings, validation) is a
  read-only view built by Evaluate and never written back.

SEE ALSO:
  - derive.go: the individual derivations
  - evaluate.go: the classification stage
*/
package prescription

import (
	"strings"

	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/generic"
)

// maxDerivePasses bounds the fixed-point loop. Two passes always suffice
// for the current rules; the bound guards future ones.
const maxDerivePasses = 4

// Update is one eye-measurement edit. Commit marks the end of editing the
// field (blur), which enables normalization and near-vision derivation.
type Update struct {
	Locator Locator `json:"locator"`
	Value   string  `json:"value"`
	Commit  bool    `json:"commit"`
}

// Apply returns r with u applied and every dependent field recomputed.
// An invalid locator leaves r unchanged apart from re-derivation.
func (t Tables) Apply(r Record, u Update) Record {
	loc := u.Locator
	if !loc.Valid() {
		return t.DeriveAll(r)
	}

	row := r.Row(loc.Side, loc.Vision).With(loc.Field, u.Value)
	if u.Commit {
		row = row.With(loc.Field, t.normalize(loc, row.Get(loc.Field)))
	}
	r = r.WithRow(loc.Side, loc.Vision, row)

	if u.Commit && loc.Vision == VisionDistance && loc.Field == FieldAdd {
		if nv, ok := DeriveNearVision(row, r.Row(loc.Side, VisionNear)); ok {
			r = r.WithRow(loc.Side, VisionNear, nv)
		}
	}
	return t.DeriveAll(r)
}

func (t Tables) normalize(loc Locator, value string) string {
	if loc.Field == FieldVn {
		if loc.Vision == VisionNear {
			return acuity.NormalizeNearVn(value)
		}
		return acuity.NormalizeVa(value)
	}
	kind, ok := KindOf(loc.Field)
	if !ok {
		return value
	}
	if kind == KindPD {
		// half-distances are written to one decimal
		d, ok := generic.ParseDecimal(value)
		if !ok {
			return ""
		}
		return t.Range(KindPD).Snap(d).StringFixed(1)
	}
	if kind == KindAdd {
		// ADD feeds the near row, so it is clamped before DeriveNearVision reads it
		if d, ok := generic.ParseDecimal(value); ok {
			value = t.Range(KindAdd).Clamp(d).String()
		}
	}
	return t.FormatPrescriptionNumber(value, kind)
}

// SetField applies a keystroke-level edit.
func (t Tables) SetField(r Record, loc Locator, value string) Record {
	return t.Apply(r, Update{Locator: loc, Value: value})
}

// CommitField applies an edit and normalizes it, as on leaving the field.
func (t Tables) CommitField(r Record, loc Locator, value string) Record {
	return t.Apply(r, Update{Locator: loc, Value: value, Commit: true})
}

// SetBalanceLens toggles mirroring. Turning it off keeps the mirrored values.
func (t Tables) SetBalanceLens(r Record, on bool) Record {
	r.BalanceLens = on
	return t.DeriveAll(r)
}

// DeriveAll recomputes every derived field until the record is stable.
func (t Tables) DeriveAll(r Record) Record {
	for i := 0; i < maxDerivePasses; i++ {
		next := t.derivePass(r)
		if next.sameDerived(r) {
			return next
		}
		r = next
	}
	return r
}

func (t Tables) derivePass(r Record) Record {
	r = MirrorBalanceLens(r)
	for _, s := range sides {
		for _, v := range visions {
			r = r.WithRow(s, v, t.HandleSpecialCases(r.Row(s, v)))
		}
	}
	r.IPD = t.IPD(r.RightEye.DV.RPD, r.LeftEye.DV.LPD)
	return r
}

// =============================================================================
// HEADER AND REMARKS
// =============================================================================

type HeaderField string

const (
	HeaderPrescriptionNo HeaderField = "prescriptionNo"
	HeaderReferenceNo    HeaderField = "referenceNo"
	HeaderClass          HeaderField = "class"
	HeaderPrescribedBy   HeaderField = "prescribedBy"
	HeaderDate           HeaderField = "date"
	HeaderRetestAfter    HeaderField = "retestAfter"
	HeaderCustomerID     HeaderField = "customerId"
	HeaderTitle          HeaderField = "title"
	HeaderName           HeaderField = "name"
	HeaderAge            HeaderField = "age"
	HeaderAddress        HeaderField = "address"
	HeaderCity           HeaderField = "city"
	HeaderState          HeaderField = "state"
	HeaderPinCode        HeaderField = "pinCode"
	HeaderPhoneLandline  HeaderField = "phoneLandline"
	HeaderMobileNo       HeaderField = "mobileNo"
	HeaderEmail          HeaderField = "email"
)

// SetHeader returns r with a header field replaced. Unknown fields are
// ignored and reported with ok=false.
func SetHeader(r Record, f HeaderField, value string) (Record, bool) {
	switch f {
	case HeaderPrescriptionNo:
		r.PrescriptionNo = value
	case HeaderReferenceNo:
		r.ReferenceNo = value
	case HeaderClass:
		r.Class = value
	case HeaderPrescribedBy:
		r.PrescribedBy = value
	case HeaderDate:
		r.Date = value
	case HeaderRetestAfter:
		r.RetestAfter = value
	case HeaderCustomerID:
		r.CustomerID = value
	case HeaderTitle:
		r.Title = value
	case HeaderName:
		r.Name = value
	case HeaderAge:
		r.Age = strings.TrimSpace(value)
	case HeaderAddress:
		r.Address = value
	case HeaderCity:
		r.City = value
	case HeaderState:
		r.State = value
	case HeaderPinCode:
		r.PinCode = strings.TrimSpace(value)
	case HeaderPhoneLandline:
		r.PhoneLandline = value
	case HeaderMobileNo:
		r.MobileNo = strings.TrimSpace(value)
	case HeaderEmail:
		r.Email = strings.TrimSpace(value)
	default:
		return r, false
	}
	return r, true
}

// SetRemark returns r with one remark flag replaced.
func SetRemark(r Record, f RemarkField, on bool) (Record, bool) {
	rm := &r.Remarks
	switch f {
	case RemarkForConstantUse:
		rm.ForConstantUse = on
	case RemarkForDistanceVisionOnly:
		rm.ForDistanceVisionOnly = on
	case RemarkForNearVisionOnly:
		rm.ForNearVisionOnly = on
	case RemarkForOfficeUse:
		rm.ForOfficeUse = on
	case RemarkForSideVision:
		rm.ForSideVision = on
	case RemarkRetestAfterExamination:
		rm.RetestAfterExamination = on
	case RemarkBifocalLens:
		rm.BifocalLens = on
	case RemarkProgressiveLens:
		rm.ProgressiveLens = on
	case RemarkAntiReflectionLens:
		rm.AntiReflectionLens = on
	default:
		return r, false
	}
	return r, true
}

// Package-level shorthands over DefaultTables.

func Apply(r Record, u Update) Record {
	return defaultTables.Apply(r, u)
}

func SetField(r Record, loc Locator, value string) Record {
	return defaultTables.SetField(r, loc, value)
}

func CommitField(r Record, loc Locator, value string) Record {
	return defaultTables.CommitField(r, loc, value)
}

func SetBalanceLens(r Record, on bool) Record {
	return defaultTables.SetBalanceLens(r, on)
}

func DeriveAll(r Record) Record {
	return defaultTables.DeriveAll(r)
}
