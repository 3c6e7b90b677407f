package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/generic"
)

// Summary is the footer of a bill.
type Summary struct {
	Basis               EstimateBasis   `json:"basis"`
	TotalBeforeDiscount decimal.Decimal `json:"totalBeforeDiscount"`
	TotalAfterDiscount  decimal.Decimal `json:"totalAfterDiscount"`
	PaymentEstimate     decimal.Decimal `json:"paymentEstimate"`
	SchAmt              decimal.Decimal `json:"schAmt"`
	Advance             decimal.Decimal `json:"advance"`
	Balance             decimal.Decimal `json:"balance"`
}

// PreDiscountTotal is the sum of rate*qty.
func PreDiscountTotal(items []LineItem) decimal.Decimal {
	sum := zero
	for _, it := range items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// PostDiscountTotal is the sum of the item amounts.
func PostDiscountTotal(items []LineItem) decimal.Decimal {
	sum := zero
	for _, it := range items {
		sum = sum.Add(it.Amount)
	}
	return sum
}

// DiscountTotal is the sum of the item discounts (the scheme amount).
func DiscountTotal(items []LineItem) decimal.Decimal {
	sum := zero
	for _, it := range items {
		sum = sum.Add(it.DiscountAmount)
	}
	return sum
}

// Summarize computes
//
//	paymentEstimate = PreDiscountTotal or PostDiscountTotal, per basis
//	schAmt          = DiscountTotal
//	balance         = paymentEstimate - schAmt - advance
//
// An unknown basis falls back to pre-discount.
func Summarize(items []LineItem, advance decimal.Decimal, basis EstimateBasis) Summary {
	if !basis.Valid() {
		basis = BasisPreDiscount
	}
	s := Summary{
		Basis:               basis,
		TotalBeforeDiscount: PreDiscountTotal(items),
		TotalAfterDiscount:  PostDiscountTotal(items),
		SchAmt:              DiscountTotal(items),
		Advance:             advance,
	}
	if basis == BasisPostDiscount {
		s.PaymentEstimate = s.TotalAfterDiscount
	} else {
		s.PaymentEstimate = s.TotalBeforeDiscount
	}
	s.Balance = s.PaymentEstimate.Sub(s.SchAmt).Sub(advance)
	return s
}

// Validate checks a bill before it is stored.
func (b Bill) Validate() generic.ValidationErrors {
	var errs generic.ValidationErrors
	if !b.Kind.Valid() {
		errs = append(errs, generic.FieldError{Field: "kind", Code: generic.CodeInvalid,
			Message: "Must be order_card or contact_lens"})
	}
	if b.Advance.IsNegative() {
		errs = append(errs, generic.FieldError{Field: "advance", Code: generic.CodeBelowMin,
			Message: "Must be at least 0"})
	}
	if len(b.Items) == 0 {
		errs = append(errs, generic.FieldError{Field: "items", Code: generic.CodeRequired,
			Message: "At least one item is required"})
	}
	for i, it := range b.Items {
		if it.Rate.IsNegative() {
			errs = append(errs, generic.FieldError{Field: fmt.Sprintf("items[%d].rate", i),
				Code: generic.CodeBelowMin, Message: "Must be at least 0"})
		}
		if !it.Qty.IsPositive() {
			errs = append(errs, generic.FieldError{Field: fmt.Sprintf("items[%d].qty", i),
				Code: generic.CodeBelowMin, Message: "Must be more than 0"})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Normalize renumbers the items and restores the amount invariants, for
// bills that arrive from outside.
func (b Bill) Normalize() Bill {
	items := copyItems(b.Items)
	for i := range items {
		items[i] = items[i].withDiscount(items[i].DiscountAmount)
	}
	b.Items = renumber(items)
	return b
}
