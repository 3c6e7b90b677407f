/*
Package billing implements order-card and contact-lens line items and the
discount arithmetic applied to them.

PURPOSE:
  A bill is a list of priced line items plus an advance payment. Each
  item keeps the invariant

    amount          = rate*qty - discountAmount
    discountPercent = discountAmount / (rate*qty) * 100   (0 when rate*qty = 0)

  after every edit. A global discount is spread over the items in
  proportion to their pre-discount totals.

MONEY:
  All amounts are decimal.Decimal rounded to two places. Apportioned
  discounts are rounded per item and the rounding residue is put on the
  largest item, so item discounts always sum to the global discount.

ESTIMATE BASIS:
  Order cards estimate the payment from pre-discount totals (sum of
  rate*qty); contact-lens bills from post-discount amounts (sum of
  amount). Both bases are exported; Bill.Summary picks one by kind.

SEE ALSO:
  - discount.go: global and per-item discounts
  - items.go: add, remove, rate and quantity edits
  - totals.go: payment estimate and balance
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

const moneyPlaces = 2

// =============================================================================
// LINE ITEM
// =============================================================================

type LineItem struct {
	// SI is the 1-based position in the bill, renumbered on removal.
	SI          int    `json:"si"`
	ProductCode string `json:"productCode,omitempty"`
	Description string `json:"description"`

	Rate            decimal.Decimal `json:"rate"`
	Qty             decimal.Decimal `json:"qty"`
	TaxPercent      decimal.Decimal `json:"taxPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Amount          decimal.Decimal `json:"amount"`
}

// Total is the pre-discount total, rate * qty.
func (i LineItem) Total() decimal.Decimal {
	return i.Rate.Mul(i.Qty).Round(moneyPlaces)
}

// withDiscount sets the discount amount, clamped to [0, Total], and
// recomputes the dependent fields.
func (i LineItem) withDiscount(amount decimal.Decimal) LineItem {
	total := i.Total()
	i.DiscountAmount = decimal.Max(zero, decimal.Min(amount, total)).Round(moneyPlaces)
	return i.recompute()
}

func (i LineItem) recompute() LineItem {
	total := i.Total()
	i.Amount = total.Sub(i.DiscountAmount)
	if total.IsPositive() {
		i.DiscountPercent = i.DiscountAmount.Div(total).Mul(hundred).Round(moneyPlaces)
	} else {
		i.DiscountPercent = zero
	}
	return i
}

// =============================================================================
// DISCOUNT INPUT
// =============================================================================

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Discount is a global discount as typed by the operator. Value is raw
// input and may be anything.
type Discount struct {
	Type  DiscountType `json:"type"`
	Value string       `json:"value"`
}

// =============================================================================
// BILL
// =============================================================================

type BillKind string

const (
	KindOrderCard   BillKind = "order_card"
	KindContactLens BillKind = "contact_lens"
)

func (k BillKind) Valid() bool {
	return k == KindOrderCard || k == KindContactLens
}

// EstimateBasis selects what the payment estimate is summed from.
type EstimateBasis string

const (
	// BasisPreDiscount sums rate*qty.
	BasisPreDiscount EstimateBasis = "pre_discount"
	// BasisPostDiscount sums the item amounts.
	BasisPostDiscount EstimateBasis = "post_discount"
)

func (b EstimateBasis) Valid() bool {
	return b == BasisPreDiscount || b == BasisPostDiscount
}

// Basis returns the estimate basis a bill kind uses.
func (k BillKind) Basis() EstimateBasis {
	if k == KindContactLens {
		return BasisPostDiscount
	}
	return BasisPreDiscount
}

type Bill struct {
	ID             string          `json:"id,omitempty"`
	Kind           BillKind        `json:"kind"`
	PrescriptionID string          `json:"prescriptionId,omitempty"`
	CustomerName   string          `json:"customerName"`
	Items          []LineItem      `json:"items"`
	Advance        decimal.Decimal `json:"advance"`
	CreatedAt      time.Time       `json:"createdAt,omitempty"`
}

// Summary totals the bill on the basis of its kind.
func (b Bill) Summary() Summary {
	return Summarize(b.Items, b.Advance, b.Kind.Basis())
}
