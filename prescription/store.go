package prescription

import "context"

// SearchField selects the column a search runs against.
type SearchField string

const (
	SearchPrescriptionNo SearchField = "prescriptionNo"
	SearchReferenceNo    SearchField = "referenceNo"
	SearchName           SearchField = "name"
	SearchMobileNo       SearchField = "mobileNo"
)

func (f SearchField) Valid() bool {
	switch f {
	case SearchPrescriptionNo, SearchReferenceNo, SearchName, SearchMobileNo:
		return true
	}
	return false
}

// Exact reports whether the field is matched exactly (numbers) rather
// than by substring (name, mobile).
func (f SearchField) Exact() bool {
	return f == SearchPrescriptionNo || f == SearchReferenceNo
}

// Store persists prescription records.
type Store interface {
	// Load returns generic.ErrNotFound for an unknown id.
	Load(ctx context.Context, id string) (Record, error)
	// Search returns matches ordered by prescription number.
	Search(ctx context.Context, query string, field SearchField) ([]Record, error)
	// Save inserts r when existingID is empty and replaces the stored record
	// otherwise. It returns the id the record is stored under.
	Save(ctx context.Context, r Record, existingID string) (string, error)
}
