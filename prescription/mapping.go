/*
mapping.go - Record <-> storage rows

PURPOSE:
  A Record is nested (two eyes x two vision rows). Storage is normalized:
  one header row, up to four eye rows keyed by (eye_type, vision_type),
  and one remarks row. ToRows and FromRows convert between the two.

ROW OMISSION:
  An eye row is written only when it is populated. A row whose fields are
  all blank (VN blank or at its placeholder) is omitted, and FromRows
  rebuilds it from the defaults of NewRecord.

SEE ALSO:
  - store/sqlite: the schema these rows are scanned from
*/
package prescription

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/generic"
)

// PrescriptionRow is the header table row.
type PrescriptionRow struct {
	ID             string `db:"id"`
	PrescriptionNo string `db:"prescription_no"`
	ReferenceNo    string `db:"reference_no"`
	Class          string `db:"class"`
	PrescribedBy   string `db:"prescribed_by"`
	Date           string `db:"date"`
	RetestAfter    string `db:"retest_after"`
	CustomerID     string `db:"customer_id"`
	Title          string `db:"title"`
	Name           string `db:"name"`
	Age            string `db:"age"`
	Address        string `db:"address"`
	City           string `db:"city"`
	State          string `db:"state"`
	PinCode        string `db:"pin_code"`
	PhoneLandline  string `db:"phone_landline"`
	MobileNo       string `db:"mobile_no"`
	Email          string `db:"email"`
	IPD            string `db:"ipd"`
	BalanceLens    bool   `db:"balance_lens"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// EyeRow is one eye-measurement row.
type EyeRow struct {
	PrescriptionID      string              `db:"prescription_id"`
	EyeType             Side                `db:"eye_type"`
	VisionType          Vision              `db:"vision_type"`
	Sph                 string              `db:"sph"`
	Cyl                 string              `db:"cyl"`
	Ax                  string              `db:"ax"`
	AddPower            string              `db:"add_power"`
	Vn                  string              `db:"vn"`
	RPD                 string              `db:"rpd"`
	LPD                 string              `db:"lpd"`
	SphericalEquivalent decimal.NullDecimal `db:"spherical_equivalent"`
}

type RemarksRow struct {
	PrescriptionID         string `db:"prescription_id"`
	ForConstantUse         bool   `db:"for_constant_use"`
	ForDistanceVisionOnly  bool   `db:"for_distance_vision_only"`
	ForNearVisionOnly      bool   `db:"for_near_vision_only"`
	ForOfficeUse           bool   `db:"for_office_use"`
	ForSideVision          bool   `db:"for_side_vision"`
	RetestAfterExamination bool   `db:"retest_after_examination"`
	BifocalLens            bool   `db:"bifocal_lens"`
	ProgressiveLens        bool   `db:"progressive_lens"`
	AntiReflectionLens     bool   `db:"anti_reflection_lens"`
}

// Rows is the storage shape of one Record.
type Rows struct {
	Prescription PrescriptionRow
	Eyes         []EyeRow
	Remarks      RemarksRow
}

// Populated reports whether the row carries anything worth storing.
func (m EyeMeasurement) Populated() bool {
	for _, f := range []Field{FieldSph, FieldCyl, FieldAx, FieldAdd, FieldRPD, FieldLPD} {
		if !generic.IsBlank(m.Get(f)) {
			return true
		}
	}
	vn := m.Vn
	return !generic.IsBlank(vn) && vn != acuity.DistanceDefault && vn != acuity.NearDefault
}

// ToRows flattens r. Eye and remarks rows are keyed by r.ID.
func ToRows(r Record) Rows {
	out := Rows{
		Prescription: PrescriptionRow{
			ID:             r.ID,
			PrescriptionNo: r.PrescriptionNo,
			ReferenceNo:    r.ReferenceNo,
			Class:          r.Class,
			PrescribedBy:   r.PrescribedBy,
			Date:           r.Date,
			RetestAfter:    r.RetestAfter,
			CustomerID:     r.CustomerID,
			Title:          r.Title,
			Name:           r.Name,
			Age:            r.Age,
			Address:        r.Address,
			City:           r.City,
			State:          r.State,
			PinCode:        r.PinCode,
			PhoneLandline:  r.PhoneLandline,
			MobileNo:       r.MobileNo,
			Email:          r.Email,
			IPD:            r.IPD,
			BalanceLens:    r.BalanceLens,
		},
		Remarks: RemarksRow{
			PrescriptionID:         r.ID,
			ForConstantUse:         r.Remarks.ForConstantUse,
			ForDistanceVisionOnly:  r.Remarks.ForDistanceVisionOnly,
			ForNearVisionOnly:      r.Remarks.ForNearVisionOnly,
			ForOfficeUse:           r.Remarks.ForOfficeUse,
			ForSideVision:          r.Remarks.ForSideVision,
			RetestAfterExamination: r.Remarks.RetestAfterExamination,
			BifocalLens:            r.Remarks.BifocalLens,
			ProgressiveLens:        r.Remarks.ProgressiveLens,
			AntiReflectionLens:     r.Remarks.AntiReflectionLens,
		},
	}
	for _, s := range sides {
		for _, v := range visions {
			m := r.Row(s, v)
			if !m.Populated() {
				continue
			}
			out.Eyes = append(out.Eyes, EyeRow{
				PrescriptionID:      r.ID,
				EyeType:             s,
				VisionType:          v,
				Sph:                 m.Sph,
				Cyl:                 m.Cyl,
				Ax:                  m.Ax,
				AddPower:            m.Add,
				Vn:                  m.Vn,
				RPD:                 m.RPD,
				LPD:                 m.LPD,
				SphericalEquivalent: m.SphericalEquivalent,
			})
		}
	}
	return out
}

// FromRows rebuilds a Record. Eye rows with an unknown key are ignored;
// missing ones keep their defaults.
func FromRows(rows Rows) Record {
	p := rows.Prescription
	r := NewRecord()
	r.ID = p.ID
	r.PrescriptionNo = p.PrescriptionNo
	r.ReferenceNo = p.ReferenceNo
	r.Class = p.Class
	r.PrescribedBy = p.PrescribedBy
	r.Date = p.Date
	r.RetestAfter = p.RetestAfter
	r.CustomerID = p.CustomerID
	r.Title = p.Title
	r.Name = p.Name
	r.Age = p.Age
	r.Address = p.Address
	r.City = p.City
	r.State = p.State
	r.PinCode = p.PinCode
	r.PhoneLandline = p.PhoneLandline
	r.MobileNo = p.MobileNo
	r.Email = p.Email
	r.IPD = p.IPD
	r.BalanceLens = p.BalanceLens

	for _, e := range rows.Eyes {
		loc := Locator{Side: e.EyeType, Vision: e.VisionType, Field: FieldSph}
		if !loc.Valid() {
			continue
		}
		m := EyeMeasurement{
			Sph:                 e.Sph,
			Cyl:                 e.Cyl,
			Ax:                  e.Ax,
			Add:                 e.AddPower,
			Vn:                  e.Vn,
			SphericalEquivalent: e.SphericalEquivalent,
		}
		if e.VisionType == VisionDistance {
			if e.EyeType == SideRight {
				m.RPD = e.RPD
			} else {
				m.LPD = e.LPD
			}
		}
		if generic.IsBlank(m.Vn) {
			m.Vn = emptyMeasurement(e.VisionType).Vn
		}
		r = r.WithRow(e.EyeType, e.VisionType, m)
	}

	rm := rows.Remarks
	r.Remarks = Remarks{
		ForConstantUse:         rm.ForConstantUse,
		ForDistanceVisionOnly:  rm.ForDistanceVisionOnly,
		ForNearVisionOnly:      rm.ForNearVisionOnly,
		ForOfficeUse:           rm.ForOfficeUse,
		ForSideVision:          rm.ForSideVision,
		RetestAfterExamination: rm.RetestAfterExamination,
		BifocalLens:            rm.BifocalLens,
		ProgressiveLens:        rm.ProgressiveLens,
		AntiReflectionLens:     rm.AntiReflectionLens,
	}
	return r
}
