package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store persists bills.
type Store interface {
	// SaveBill inserts b and returns its id. Bills are immutable once stored.
	SaveBill(ctx context.Context, b Bill) (string, error)
	// LoadBill returns generic.ErrNotFound for an unknown id.
	LoadBill(ctx context.Context, id string) (Bill, error)
	// ListBills returns the bills of one prescription, oldest first.
	ListBills(ctx context.Context, prescriptionID string) ([]Bill, error)
}

// BillRow is the bills table row.
type BillRow struct {
	ID             string          `db:"id"`
	Kind           BillKind        `db:"kind"`
	PrescriptionID string          `db:"prescription_id"`
	CustomerName   string          `db:"customer_name"`
	Advance        decimal.Decimal `db:"advance"`
	CreatedAt      time.Time       `db:"created_at"`
}

// BillItemRow is one bill_items row.
type BillItemRow struct {
	BillID          string          `db:"bill_id"`
	SI              int             `db:"si"`
	ProductCode     string          `db:"product_code"`
	Description     string          `db:"description"`
	Rate            decimal.Decimal `db:"rate"`
	Qty             decimal.Decimal `db:"qty"`
	TaxPercent      decimal.Decimal `db:"tax_percent"`
	DiscountAmount  decimal.Decimal `db:"discount_amount"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	Amount          decimal.Decimal `db:"amount"`
}

func ToRows(b Bill) (BillRow, []BillItemRow) {
	row := BillRow{
		ID:             b.ID,
		Kind:           b.Kind,
		PrescriptionID: b.PrescriptionID,
		CustomerName:   b.CustomerName,
		Advance:        b.Advance,
		CreatedAt:      b.CreatedAt,
	}
	items := make([]BillItemRow, len(b.Items))
	for i, it := range b.Items {
		items[i] = BillItemRow{
			BillID:          b.ID,
			SI:              it.SI,
			ProductCode:     it.ProductCode,
			Description:     it.Description,
			Rate:            it.Rate,
			Qty:             it.Qty,
			TaxPercent:      it.TaxPercent,
			DiscountAmount:  it.DiscountAmount,
			DiscountPercent: it.DiscountPercent,
			Amount:          it.Amount,
		}
	}
	return row, items
}

// FromRows rebuilds a bill. Items are expected in SI order.
func FromRows(row BillRow, items []BillItemRow) Bill {
	b := Bill{
		ID:             row.ID,
		Kind:           row.Kind,
		PrescriptionID: row.PrescriptionID,
		CustomerName:   row.CustomerName,
		Advance:        row.Advance,
		CreatedAt:      row.CreatedAt,
		Items:          make([]LineItem, len(items)),
	}
	for i, it := range items {
		b.Items[i] = LineItem{
			SI:              it.SI,
			ProductCode:     it.ProductCode,
			Description:     it.Description,
			Rate:            it.Rate,
			Qty:             it.Qty,
			TaxPercent:      it.TaxPercent,
			DiscountAmount:  it.DiscountAmount,
			DiscountPercent: it.DiscountPercent,
			Amount:          it.Amount,
		}
	}
	return b
}
