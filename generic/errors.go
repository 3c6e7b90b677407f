/*
errors.go - Centralized error types for the optical engines

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Field validation - required/numeric/range/step violations (FieldError)
  2. Input rejection  - discount input that cannot be applied
  3. Store errors     - missing or conflicting records, failed writes

DERIVATIONS NEVER FAIL:
  Engines that derive values (near vision, spherical equivalent, IPD,
  visual acuity) return an empty or null value instead of an error.
  Only validation, discount application and persistence report errors.

SEE ALSO:
  - prescription/validate.go: produces FieldError values
  - billing/discount.go: returns ErrInvalidDiscount / ErrNothingToDiscount
  - prescription/service.go: wraps store failures with ErrSaveFailed
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a record fails field validation and
	// cannot be submitted.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDiscount is returned when a discount value is not a positive
	// number or its type is unknown.
	ErrInvalidDiscount = errors.New("discount must be a positive number")

	// ErrNothingToDiscount is returned when there is no pre-discount total to
	// apply a discount against.
	ErrNothingToDiscount = errors.New("no items to apply discount to")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicatePrescriptionNo is returned when a prescription number is
	// already used by another record.
	ErrDuplicatePrescriptionNo = errors.New("duplicate prescription number")

	// ErrSaveFailed is returned when the store could not persist a record.
	ErrSaveFailed = errors.New("save failed")

	// ErrInvalidSearch is returned for an unknown search field or an empty query.
	ErrInvalidSearch = errors.New("invalid search")
)

// =============================================================================
// FIELD ERRORS - Inline, per-field validation results
// =============================================================================

// Field error codes.
const (
	CodeRequired     = "required"
	CodeNotANumber   = "not_a_number"
	CodeBelowMin     = "below_min"
	CodeAboveMax     = "above_max"
	CodeStep         = "step"
	CodeAxisRequired = "axis_required"
	CodeInvalidVn    = "invalid_vn"
	CodeInvalid      = "invalid"
)

// FieldError describes one field that failed validation. It never blocks
// editing of other fields; it only blocks final submission.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// ValidationErrors collects every failing field of a record.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d field(s) invalid: %s", len(v), strings.Join(msgs, "; "))
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidDiscount) ||
		errors.Is(err, ErrNothingToDiscount) ||
		errors.Is(err, ErrInvalidSearch)
}

// IsConflict returns true if the error indicates a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicatePrescriptionNo)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
