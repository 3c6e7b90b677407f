package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/generic"
)

// DiscountResult is a successfully applied global discount.
type DiscountResult struct {
	Items               []LineItem      `json:"items"`
	TotalBeforeDiscount decimal.Decimal `json:"totalBeforeDiscount"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
}

// ApplyGlobalDiscount spreads d over items in proportion to each item's
// pre-discount total, replacing any per-item discount. Percentages above
// 100 are capped at 100 and fixed amounts at the bill total.
//
// The input slice is never modified. On rejection the returned result
// holds a copy of the unchanged items and the error is one of
// ErrInvalidDiscount or ErrNothingToDiscount.
func ApplyGlobalDiscount(items []LineItem, d Discount) (DiscountResult, error) {
	out := DiscountResult{Items: copyItems(items)}

	value, ok := generic.ParseDecimal(d.Value)
	if !ok || !value.IsPositive() {
		return out, fmt.Errorf("%w: got %q", generic.ErrInvalidDiscount, d.Value)
	}
	if !d.Type.Valid() {
		return out, fmt.Errorf("%w: unknown type %q", generic.ErrInvalidDiscount, d.Type)
	}

	total := PreDiscountTotal(items)
	if !total.IsPositive() {
		return out, generic.ErrNothingToDiscount
	}

	var discount decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		discount = total.Mul(decimal.Min(value, hundred)).Div(hundred)
	case DiscountFixed:
		discount = decimal.Min(value, total)
	}
	discount = discount.Round(moneyPlaces)

	out.Items = apportion(out.Items, discount, total)
	out.TotalBeforeDiscount = total
	out.DiscountAmount = discount
	return out, nil
}

// apportion sets each item's discount to its share of discount. Shares are
// rounded to cents; the residue goes to the item with the largest total.
func apportion(items []LineItem, discount, total decimal.Decimal) []LineItem {
	allocated := zero
	largest := -1
	for i := range items {
		itemTotal := items[i].Total()
		share := zero
		if itemTotal.IsPositive() {
			share = discount.Mul(itemTotal).Div(total).Round(moneyPlaces)
		}
		items[i] = items[i].withDiscount(share)
		allocated = allocated.Add(items[i].DiscountAmount)
		if largest < 0 || itemTotal.GreaterThan(items[largest].Total()) {
			largest = i
		}
	}

	if residue := discount.Sub(allocated); !residue.IsZero() && largest >= 0 {
		items[largest] = items[largest].withDiscount(items[largest].DiscountAmount.Add(residue))
	}
	return items
}

// =============================================================================
// PER-ITEM DISCOUNT
// =============================================================================

// EditDiscountAmount sets the item's discount amount, clamped to
// [0, rate*qty], and recomputes its percent and amount. Blank input
// clears the discount. Non-numeric input and zero-total items are no-ops.
func EditDiscountAmount(item LineItem, value string) LineItem {
	if !item.Total().IsPositive() {
		return item
	}
	amount, ok := parseOrZero(value)
	if !ok {
		return item
	}
	return item.withDiscount(amount)
}

// EditDiscountPercent is EditDiscountAmount for a percentage, clamped
// to [0, 100].
func EditDiscountPercent(item LineItem, value string) LineItem {
	total := item.Total()
	if !total.IsPositive() {
		return item
	}
	pct, ok := parseOrZero(value)
	if !ok {
		return item
	}
	pct = decimal.Max(zero, decimal.Min(pct, hundred))
	return item.withDiscount(total.Mul(pct).Div(hundred))
}

func parseOrZero(value string) (decimal.Decimal, bool) {
	if generic.IsBlank(value) {
		return zero, true
	}
	return generic.ParseDecimal(value)
}

func copyItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
