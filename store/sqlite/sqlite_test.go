package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/generic"
	rx "github.com/warp/optical-engine/prescription"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func rightDV(f rx.Field) rx.Locator {
	return rx.Locator{Side: rx.SideRight, Vision: rx.VisionDistance, Field: f}
}

func sample(no, name string) rx.Record {
	r := rx.NewRecord()
	r.PrescriptionNo = no
	r.ReferenceNo = "REF-" + no
	r.Name = name
	r.MobileNo = "9876543210"
	r.Age = "52"
	r.Remarks.BifocalLens = true
	r = rx.CommitField(r, rightDV(rx.FieldSph), "-1.00")
	r = rx.CommitField(r, rightDV(rx.FieldCyl), "-0.50")
	r = rx.CommitField(r, rightDV(rx.FieldAx), "90")
	r = rx.CommitField(r, rightDV(rx.FieldRPD), "31")
	r = rx.CommitField(r, rightDV(rx.FieldAdd), "2.00")
	r = rx.CommitField(r, rx.Locator{Side: rx.SideLeft, Vision: rx.VisionDistance, Field: rx.FieldLPD}, "32")
	return r
}

// =============================================================================
// PRESCRIPTIONS
// =============================================================================

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// GIVEN
	r := sample("P-1", "Asha Kumar")

	// WHEN
	id, err := store.Save(ctx, r, "")
	require.NoError(t, err)

	// THEN
	got, err := store.Load(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, r.PrescriptionNo, got.PrescriptionNo)
	assert.Equal(t, r.Name, got.Name)
	assert.Equal(t, "63.0", got.IPD)
	assert.True(t, got.Remarks.BifocalLens)
	assert.Equal(t, r.RightEye.DV.Sph, got.RightEye.DV.Sph)
	assert.Equal(t, "90", got.RightEye.DV.Ax)
	assert.Equal(t, "+2.00", got.RightEye.DV.Add)
	assert.Equal(t, "31.0", got.RightEye.DV.RPD)
	assert.Equal(t, "+1.00", got.RightEye.NV.Sph)
	assert.Equal(t, "32.0", got.LeftEye.DV.LPD)
	require.True(t, got.RightEye.DV.SphericalEquivalent.Valid)
	assert.True(t, got.RightEye.DV.SphericalEquivalent.Decimal.Equal(decimal.RequireFromString("-1.25")))

	// The unpopulated left near row comes back with its defaults
	assert.Equal(t, rx.NewRecord().LeftEye.NV, got.LeftEye.NV)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := newTestStore(t).Load(context.Background(), "missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestSave_UpdateReplacesEyeRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	r := sample("P-1", "Asha Kumar")
	id, err := store.Save(ctx, r, "")
	require.NoError(t, err)

	// Clear the right near row and rename
	r.RightEye.NV = rx.NewRecord().RightEye.NV
	r.Name = "Asha K"
	_, err = store.Save(ctx, r, id)
	require.NoError(t, err)

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.Name)
	assert.Equal(t, "", got.RightEye.NV.Sph)
	assert.Equal(t, "-1.00", got.RightEye.DV.Sph)

	var count int
	require.NoError(t, store.db.Get(&count, `SELECT COUNT(*) FROM eye_prescriptions WHERE prescription_id = ?`, id))
	assert.Equal(t, 2, count)

	_, err = store.Save(ctx, r, "missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestSave_DuplicatePrescriptionNo(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Save(ctx, sample("P-1", "Asha"), "")
	require.NoError(t, err)

	_, err = store.Save(ctx, sample("P-1", "Ravi"), "")
	assert.ErrorIs(t, err, generic.ErrDuplicatePrescriptionNo)
	assert.True(t, generic.IsConflict(err))

	// Blank numbers never clash
	_, err = store.Save(ctx, sample("", "Draft 1"), "")
	require.NoError(t, err)
	_, err = store.Save(ctx, sample("", "Draft 2"), "")
	require.NoError(t, err)

	// The failed insert left nothing behind
	var count int
	require.NoError(t, store.db.Get(&count, `SELECT COUNT(*) FROM prescriptions`))
	assert.Equal(t, 3, count)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, r := range []rx.Record{
		sample("P-2", "Asha Kumar"),
		sample("P-1", "Ravi Kumar"),
		sample("P-3", "Meena 100%"),
	} {
		_, err := store.Save(ctx, r, "")
		require.NoError(t, err)
	}

	byName, err := store.Search(ctx, "KUMAR", rx.SearchName)
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "P-1", byName[0].PrescriptionNo)
	assert.Equal(t, "-1.00", byName[0].RightEye.DV.Sph, "eye rows are attached")

	byNo, err := store.Search(ctx, "P-3", rx.SearchPrescriptionNo)
	require.NoError(t, err)
	require.Len(t, byNo, 1)
	assert.Equal(t, "Meena 100%", byNo[0].Name)

	lower, err := store.Search(ctx, "p-3", rx.SearchPrescriptionNo)
	require.NoError(t, err)
	assert.Empty(t, lower, "exact matches are case-sensitive")

	byRef, err := store.Search(ctx, "REF-P", rx.SearchReferenceNo)
	require.NoError(t, err)
	assert.Empty(t, byRef, "reference numbers match exactly")

	// LIKE wildcards in the query are literal
	pct, err := store.Search(ctx, "%", rx.SearchName)
	require.NoError(t, err)
	assert.Len(t, pct, 1)

	byMobile, err := store.Search(ctx, "43210", rx.SearchMobileNo)
	require.NoError(t, err)
	assert.Len(t, byMobile, 3)

	_, err = store.Search(ctx, "x", "email")
	assert.ErrorIs(t, err, generic.ErrInvalidSearch)
}

// =============================================================================
// BILLS
// =============================================================================

func TestBills(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rxID, err := store.Save(ctx, sample("P-1", "Asha"), "")
	require.NoError(t, err)

	items := billing.AddItem(nil, billing.NewItem("Frame", "1500", "1"))
	items = billing.AddItem(items, billing.NewItem("Lens", "750.50", "2"))
	res, err := billing.ApplyGlobalDiscount(items, billing.Discount{Type: billing.DiscountPercentage, Value: "10"})
	require.NoError(t, err)

	id, err := store.SaveBill(ctx, billing.Bill{
		Kind:           billing.KindOrderCard,
		PrescriptionID: rxID,
		CustomerName:   "Asha",
		Items:          res.Items,
		Advance:        decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	got, err := store.LoadBill(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rxID, got.PrescriptionID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Items[1].SI)
	assert.Equal(t, "1501.00", got.Items[1].Rate.Mul(got.Items[1].Qty).StringFixed(2))
	assert.Equal(t, res.Items[1].Amount.StringFixed(2), got.Items[1].Amount.StringFixed(2))
	assert.Equal(t, "1000.00", got.Advance.StringFixed(2))

	// Walk-in bills carry no prescription
	walkIn, err := store.SaveBill(ctx, billing.Bill{Kind: billing.KindContactLens, Items: items})
	require.NoError(t, err)
	got, err = store.LoadBill(ctx, walkIn)
	require.NoError(t, err)
	assert.Equal(t, "", got.PrescriptionID)

	list, err := store.ListBills(ctx, rxID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	_, err = store.SaveBill(ctx, billing.Bill{Kind: billing.KindOrderCard, PrescriptionID: "missing", Items: items})
	assert.True(t, generic.IsNotFound(err))

	_, err = store.LoadBill(ctx, "missing")
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// FAILURE PATHS (sqlmock)
// =============================================================================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "sqlite3")), mock
}

func TestSave_RollsBackWhenEyeInsertFails(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO prescriptions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO eye_prescriptions").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), sample("P-1", "Asha"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert eye rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UpdateOfMissingRecordRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE prescriptions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.Save(context.Background(), sample("P-1", "Asha"), "gone")
	assert.True(t, generic.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_BeginFails(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err := store.Save(context.Background(), sample("P-1", "Asha"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBill_RollsBackWhenItemsFail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bills").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO bill_items").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.SaveBill(context.Background(), billing.Bill{
		Kind:  billing.KindOrderCard,
		Items: billing.AddItem(nil, billing.NewItem("Frame", "100", "1")),
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
