package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/generic"
)

// NewItem builds a line item from raw rate and quantity input. Values that
// do not parse are taken as zero.
func NewItem(description, rate, qty string) LineItem {
	r, _ := generic.ParseDecimal(rate)
	q, _ := generic.ParseDecimal(qty)
	return LineItem{Description: description, Rate: r, Qty: q}.recompute()
}

// AddItem appends item as the last row and numbers it.
func AddItem(items []LineItem, item LineItem) []LineItem {
	out := copyItems(items)
	item.SI = len(out) + 1
	item = item.withDiscount(item.DiscountAmount)
	return append(out, item)
}

// RemoveItem deletes the row numbered si and renumbers the rest from 1.
// An unknown si leaves the items unchanged.
func RemoveItem(items []LineItem, si int) []LineItem {
	out := make([]LineItem, 0, len(items))
	found := false
	for _, it := range items {
		if it.SI == si {
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		return copyItems(items)
	}
	return renumber(out)
}

func renumber(items []LineItem) []LineItem {
	for i := range items {
		items[i].SI = i + 1
	}
	return items
}

// UpdateItem applies fn to the row numbered si.
func UpdateItem(items []LineItem, si int, fn func(LineItem) LineItem) ([]LineItem, error) {
	out := copyItems(items)
	for i := range out {
		if out[i].SI == si {
			out[i] = fn(out[i])
			out[i].SI = si
			return out, nil
		}
	}
	return items, fmt.Errorf("%w: item %d", generic.ErrNotFound, si)
}

// SetRate changes the rate. The discount amount is kept, capped at the new
// total, and percent and amount follow. Non-numeric input is a no-op;
// blank input is zero.
func SetRate(item LineItem, value string) LineItem {
	rate, ok := parseOrZero(value)
	if !ok || rate.IsNegative() {
		return item
	}
	item.Rate = rate
	return item.withDiscount(item.DiscountAmount)
}

// SetQty is SetRate for the quantity.
func SetQty(item LineItem, value string) LineItem {
	qty, ok := parseOrZero(value)
	if !ok || qty.IsNegative() {
		return item
	}
	item.Qty = qty
	return item.withDiscount(item.DiscountAmount)
}

// SetTaxPercent records the tax rate. Tax is informational and does not
// enter the amount.
func SetTaxPercent(item LineItem, value string) LineItem {
	tax, ok := parseOrZero(value)
	if !ok || tax.IsNegative() {
		return item
	}
	item.TaxPercent = decimal.Min(tax, hundred)
	return item
}
