package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/generic"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func items(totals ...string) []billing.LineItem {
	var out []billing.LineItem
	for _, total := range totals {
		out = billing.AddItem(out, billing.NewItem("item", total, "1"))
	}
	return out
}

// =============================================================================
// GLOBAL DISCOUNT
// =============================================================================

func TestApplyGlobalDiscount_Percentage(t *testing.T) {
	// GIVEN: items with pre-discount totals 100 and 300
	in := items("100", "300")

	// WHEN: a 10% discount is applied
	res, err := billing.ApplyGlobalDiscount(in, billing.Discount{Type: billing.DiscountPercentage, Value: "10"})
	require.NoError(t, err)

	// THEN: the discount is split in proportion to the totals
	assertMoney(t, "400", res.TotalBeforeDiscount)
	assertMoney(t, "40", res.DiscountAmount)
	assertMoney(t, "10", res.Items[0].DiscountAmount)
	assertMoney(t, "30", res.Items[1].DiscountAmount)
	assertMoney(t, "90", res.Items[0].Amount)
	assertMoney(t, "270", res.Items[1].Amount)
	assertMoney(t, "10", res.Items[0].DiscountPercent)
	assertMoney(t, "360", billing.PostDiscountTotal(res.Items))

	// AND: the input is untouched
	assertMoney(t, "0", in[0].DiscountAmount)
}

func TestApplyGlobalDiscount_FixedCappedAtTotal(t *testing.T) {
	res, err := billing.ApplyGlobalDiscount(items("400"), billing.Discount{Type: billing.DiscountFixed, Value: "500"})
	require.NoError(t, err)

	assertMoney(t, "400", res.DiscountAmount)
	assertMoney(t, "400", res.Items[0].DiscountAmount)
	assertMoney(t, "0", res.Items[0].Amount)
	assertMoney(t, "100", res.Items[0].DiscountPercent)
}

func TestApplyGlobalDiscount_PercentageCappedAt100(t *testing.T) {
	res, err := billing.ApplyGlobalDiscount(items("150", "250"), billing.Discount{Type: billing.DiscountPercentage, Value: "150"})
	require.NoError(t, err)
	assertMoney(t, "400", res.DiscountAmount)
	assertMoney(t, "0", billing.PostDiscountTotal(res.Items))
}

func TestApplyGlobalDiscount_RoundingResidue(t *testing.T) {
	// 100 split three ways does not divide into cents
	res, err := billing.ApplyGlobalDiscount(items("100", "100", "100"), billing.Discount{Type: billing.DiscountFixed, Value: "100"})
	require.NoError(t, err)

	assertMoney(t, "33.34", res.Items[0].DiscountAmount)
	assertMoney(t, "33.33", res.Items[1].DiscountAmount)
	assertMoney(t, "33.33", res.Items[2].DiscountAmount)
	assertMoney(t, "100", billing.DiscountTotal(res.Items))
}

func TestApplyGlobalDiscount_ZeroTotalItemGetsNothing(t *testing.T) {
	res, err := billing.ApplyGlobalDiscount(items("0", "200"), billing.Discount{Type: billing.DiscountPercentage, Value: "50"})
	require.NoError(t, err)

	assertMoney(t, "0", res.Items[0].DiscountAmount)
	assertMoney(t, "0", res.Items[0].DiscountPercent)
	assertMoney(t, "100", res.Items[1].DiscountAmount)
}

func TestApplyGlobalDiscount_Rejections(t *testing.T) {
	in := items("100")

	for _, value := range []string{"0", "-5", "abc", ""} {
		res, err := billing.ApplyGlobalDiscount(in, billing.Discount{Type: billing.DiscountFixed, Value: value})
		assert.ErrorIs(t, err, generic.ErrInvalidDiscount, "value %q", value)
		assert.Equal(t, in, res.Items)
	}

	_, err := billing.ApplyGlobalDiscount(in, billing.Discount{Type: "bogus", Value: "5"})
	assert.ErrorIs(t, err, generic.ErrInvalidDiscount)

	_, err = billing.ApplyGlobalDiscount(nil, billing.Discount{Type: billing.DiscountFixed, Value: "5"})
	assert.ErrorIs(t, err, generic.ErrNothingToDiscount)

	_, err = billing.ApplyGlobalDiscount(items("0"), billing.Discount{Type: billing.DiscountFixed, Value: "5"})
	assert.ErrorIs(t, err, generic.ErrNothingToDiscount)
	assert.True(t, generic.IsClientError(err))
}

// =============================================================================
// PER-ITEM DISCOUNT
// =============================================================================

func TestEditDiscountAmount(t *testing.T) {
	item := billing.NewItem("Frame", "200", "1")

	got := billing.EditDiscountAmount(item, "50")
	assertMoney(t, "50", got.DiscountAmount)
	assertMoney(t, "25", got.DiscountPercent)
	assertMoney(t, "150", got.Amount)

	assertMoney(t, "200", billing.EditDiscountAmount(item, "500").DiscountAmount)
	assertMoney(t, "0", billing.EditDiscountAmount(item, "-5").DiscountAmount)
	assertMoney(t, "0", billing.EditDiscountAmount(got, "").DiscountAmount)
	assert.Equal(t, got, billing.EditDiscountAmount(got, "abc"))

	free := billing.NewItem("Case", "0", "1")
	assert.Equal(t, free, billing.EditDiscountAmount(free, "10"))
}

func TestEditDiscountPercent(t *testing.T) {
	item := billing.NewItem("Lens", "125", "2")

	got := billing.EditDiscountPercent(item, "10")
	assertMoney(t, "25", got.DiscountAmount)
	assertMoney(t, "10", got.DiscountPercent)
	assertMoney(t, "225", got.Amount)

	capped := billing.EditDiscountPercent(item, "120")
	assertMoney(t, "250", capped.DiscountAmount)
	assertMoney(t, "100", capped.DiscountPercent)
	assertMoney(t, "0", capped.Amount)

	free := billing.NewItem("Case", "0", "1")
	assert.Equal(t, free, billing.EditDiscountPercent(free, "10"))
}

// =============================================================================
// ITEMS
// =============================================================================

func TestAddAndRemoveItem_Renumbers(t *testing.T) {
	list := items("10", "20", "30")
	assert.Equal(t, []int{1, 2, 3}, sis(list))

	list = billing.RemoveItem(list, 2)
	assert.Equal(t, []int{1, 2}, sis(list))
	assertMoney(t, "30", list[1].Rate)

	assert.Len(t, billing.RemoveItem(list, 9), 2)
}

func TestRemoveItem_UnknownSIKeepsNumbering(t *testing.T) {
	// GIVEN: rows loaded with a gap in their numbering
	list := items("10", "20")
	list[1].SI = 3

	// WHEN
	got := billing.RemoveItem(list, 2)

	// THEN: nothing is removed or renumbered
	assert.Equal(t, []int{1, 3}, sis(got))
	assert.Equal(t, list, got)
}

func sis(list []billing.LineItem) []int {
	out := make([]int, len(list))
	for i, it := range list {
		out[i] = it.SI
	}
	return out
}

func TestSetRateAndQty_KeepInvariant(t *testing.T) {
	item := billing.EditDiscountAmount(billing.NewItem("Frame", "100", "1"), "10")

	item = billing.SetQty(item, "2")
	assertMoney(t, "10", item.DiscountAmount)
	assertMoney(t, "5", item.DiscountPercent)
	assertMoney(t, "190", item.Amount)

	// Dropping the rate caps the discount at the new total
	item = billing.SetRate(item, "4")
	assertMoney(t, "8", item.DiscountAmount)
	assertMoney(t, "0", item.Amount)

	assert.Equal(t, item, billing.SetRate(item, "abc"))
	assert.Equal(t, item, billing.SetQty(item, "-1"))
}

func TestUpdateItem(t *testing.T) {
	list := items("100", "200")

	updated, err := billing.UpdateItem(list, 2, func(it billing.LineItem) billing.LineItem {
		return billing.EditDiscountPercent(it, "50")
	})
	require.NoError(t, err)
	assertMoney(t, "100", updated[1].Amount)
	assertMoney(t, "200", list[1].Amount, "input untouched")

	_, err = billing.UpdateItem(list, 7, func(it billing.LineItem) billing.LineItem { return it })
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// TOTALS
// =============================================================================

func TestSummarize_BothBases(t *testing.T) {
	res, err := billing.ApplyGlobalDiscount(items("100", "300"), billing.Discount{Type: billing.DiscountPercentage, Value: "10"})
	require.NoError(t, err)
	advance := dec("50")

	pre := billing.Summarize(res.Items, advance, billing.BasisPreDiscount)
	assertMoney(t, "400", pre.PaymentEstimate)
	assertMoney(t, "40", pre.SchAmt)
	assertMoney(t, "310", pre.Balance)

	post := billing.Summarize(res.Items, advance, billing.BasisPostDiscount)
	assertMoney(t, "360", post.PaymentEstimate)
	assertMoney(t, "270", post.Balance)

	orderCard := billing.Bill{Kind: billing.KindOrderCard, Items: res.Items, Advance: advance}
	assert.Equal(t, billing.BasisPreDiscount, orderCard.Summary().Basis)
	contactLens := billing.Bill{Kind: billing.KindContactLens, Items: res.Items, Advance: advance}
	assert.Equal(t, billing.BasisPostDiscount, contactLens.Summary().Basis)
}

func TestBill_Validate(t *testing.T) {
	assert.Nil(t, billing.Bill{Kind: billing.KindOrderCard, Items: items("10")}.Validate())

	bad := billing.Bill{
		Kind:    "invoice",
		Advance: dec("-1"),
		Items:   []billing.LineItem{{Rate: dec("-1"), Qty: decimal.Zero}},
	}
	errs := bad.Validate()
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"kind", "advance", "items[0].rate", "items[0].qty"}, fields)
}

// =============================================================================
// SERVICE
// =============================================================================

type memoryBills struct {
	bills map[string]billing.Bill
	err   error
}

func (m *memoryBills) SaveBill(_ context.Context, b billing.Bill) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b.ID = "bill-1"
	m.bills[b.ID] = b
	return b.ID, nil
}

func (m *memoryBills) LoadBill(_ context.Context, id string) (billing.Bill, error) {
	b, ok := m.bills[id]
	if !ok {
		return billing.Bill{}, generic.ErrNotFound
	}
	return b, nil
}

func (m *memoryBills) ListBills(_ context.Context, _ string) ([]billing.Bill, error) {
	var out []billing.Bill
	for _, b := range m.bills {
		out = append(out, b)
	}
	return out, nil
}

func TestService_Save(t *testing.T) {
	store := &memoryBills{bills: map[string]billing.Bill{}}
	svc := billing.NewService(store, zerolog.Nop())

	// Items arrive unnumbered and with a stale amount
	b := billing.Bill{
		Kind:  billing.KindContactLens,
		Items: []billing.LineItem{{Description: "Lens", Rate: dec("500"), Qty: dec("2"), DiscountAmount: dec("100")}},
	}
	saved, err := svc.Save(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "bill-1", saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, 1, saved.Items[0].SI)
	assertMoney(t, "900", saved.Items[0].Amount)
	assertMoney(t, "10", saved.Items[0].DiscountPercent)

	loaded, err := svc.Load(context.Background(), "bill-1")
	require.NoError(t, err)
	assert.Equal(t, billing.KindContactLens, loaded.Kind)

	_, err = svc.Save(context.Background(), billing.Bill{Kind: billing.KindOrderCard})
	assert.ErrorIs(t, err, generic.ErrValidation)

	store.err = errors.New("locked")
	_, err = svc.Save(context.Background(), b)
	assert.ErrorIs(t, err, generic.ErrSaveFailed)
}

func TestRows_RoundTrip(t *testing.T) {
	b := billing.Bill{ID: "b1", Kind: billing.KindOrderCard, PrescriptionID: "rx-1", Items: items("10", "20"), Advance: dec("5")}
	row, itemRows := billing.ToRows(b)
	assert.Equal(t, "b1", itemRows[1].BillID)
	assert.Equal(t, b, billing.FromRows(row, itemRows))
}
