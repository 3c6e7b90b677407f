/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements prescription.Store and billing.Store on SQLite through sqlx.
  Rows are the mapping types of the domain packages (prescription.EyeRow,
  billing.BillItemRow, ...) scanned by their db tags.

INTERFACES IMPLEMENTED:
  prescription.Store: Load, Search, Save
  billing.Store:      SaveBill, LoadBill, ListBills

KEY TABLES:
  prescriptions:        Header row, one per record
  eye_prescriptions:    Up to four rows per record, keyed by (eye_type, vision_type)
  prescription_remarks: One row of nine flags per record
  bills:                Bill header, optionally linked to a prescription
  bill_items:           Line items keyed by (bill_id, si)

WRITES:
  A prescription save is one transaction: header insert or update, then
  the eye and remarks rows are deleted and reinserted. A failure anywhere
  rolls the whole save back.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection, so
  ":memory:" databases behave like files.

USAGE:
  store, err := sqlite.New("./data/optical.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). NewWithDB skips it; call Migrate.

SEE ALSO:
  - prescription/mapping.go: Record <-> rows
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/generic"
	"github.com/warp/optical-engine/prescription"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sqlx.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := NewWithDB(db)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an open handle without migrating it.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
	CREATE TABLE IF NOT EXISTS prescriptions (
		id TEXT PRIMARY KEY,
		prescription_no TEXT NOT NULL DEFAULT '',
		reference_no TEXT NOT NULL DEFAULT '',
		class TEXT NOT NULL DEFAULT '',
		prescribed_by TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		retest_after TEXT NOT NULL DEFAULT '',
		customer_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		age TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		pin_code TEXT NOT NULL DEFAULT '',
		phone_landline TEXT NOT NULL DEFAULT '',
		mobile_no TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		ipd TEXT NOT NULL DEFAULT '',
		balance_lens BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Blank numbers are allowed on any number of drafts
	CREATE UNIQUE INDEX IF NOT EXISTS idx_prescriptions_no
		ON prescriptions(prescription_no) WHERE prescription_no <> '';
	CREATE INDEX IF NOT EXISTS idx_prescriptions_reference
		ON prescriptions(reference_no);
	CREATE INDEX IF NOT EXISTS idx_prescriptions_mobile
		ON prescriptions(mobile_no);

	CREATE TABLE IF NOT EXISTS eye_prescriptions (
		prescription_id TEXT NOT NULL REFERENCES prescriptions(id) ON DELETE CASCADE,
		eye_type TEXT NOT NULL CHECK (eye_type IN ('right', 'left')),
		vision_type TEXT NOT NULL CHECK (vision_type IN ('dv', 'nv')),
		sph TEXT NOT NULL DEFAULT '',
		cyl TEXT NOT NULL DEFAULT '',
		ax TEXT NOT NULL DEFAULT '',
		add_power TEXT NOT NULL DEFAULT '',
		vn TEXT NOT NULL DEFAULT '',
		rpd TEXT NOT NULL DEFAULT '',
		lpd TEXT NOT NULL DEFAULT '',
		spherical_equivalent TEXT,
		PRIMARY KEY (prescription_id, eye_type, vision_type)
	);

	CREATE TABLE IF NOT EXISTS prescription_remarks (
		prescription_id TEXT PRIMARY KEY REFERENCES prescriptions(id) ON DELETE CASCADE,
		for_constant_use BOOLEAN NOT NULL DEFAULT 0,
		for_distance_vision_only BOOLEAN NOT NULL DEFAULT 0,
		for_near_vision_only BOOLEAN NOT NULL DEFAULT 0,
		for_office_use BOOLEAN NOT NULL DEFAULT 0,
		for_side_vision BOOLEAN NOT NULL DEFAULT 0,
		retest_after_examination BOOLEAN NOT NULL DEFAULT 0,
		bifocal_lens BOOLEAN NOT NULL DEFAULT 0,
		progressive_lens BOOLEAN NOT NULL DEFAULT 0,
		anti_reflection_lens BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('order_card', 'contact_lens')),
		prescription_id TEXT REFERENCES prescriptions(id),
		customer_name TEXT NOT NULL DEFAULT '',
		advance TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bills_prescription
		ON bills(prescription_id, created_at);

	CREATE TABLE IF NOT EXISTS bill_items (
		bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		si INTEGER NOT NULL,
		product_code TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		rate TEXT NOT NULL,
		qty TEXT NOT NULL,
		tax_percent TEXT NOT NULL DEFAULT '0',
		discount_amount TEXT NOT NULL DEFAULT '0',
		discount_percent TEXT NOT NULL DEFAULT '0',
		amount TEXT NOT NULL,
		PRIMARY KEY (bill_id, si)
	);
`

// =============================================================================
// PRESCRIPTION STORE (prescription.Store interface)
// =============================================================================

const (
	prescriptionColumns = `id, prescription_no, reference_no, class, prescribed_by, date,
		retest_after, customer_id, title, name, age, address, city, state, pin_code,
		phone_landline, mobile_no, email, ipd, balance_lens, created_at, updated_at`

	eyeColumns = `prescription_id, eye_type, vision_type, sph, cyl, ax, add_power, vn,
		rpd, lpd, spherical_equivalent`

	remarksColumns = `prescription_id, for_constant_use, for_distance_vision_only,
		for_near_vision_only, for_office_use, for_side_vision, retest_after_examination,
		bifocal_lens, progressive_lens, anti_reflection_lens`

	insertPrescription = `
		INSERT INTO prescriptions (` + prescriptionColumns + `)
		VALUES (:id, :prescription_no, :reference_no, :class, :prescribed_by, :date,
			:retest_after, :customer_id, :title, :name, :age, :address, :city, :state, :pin_code,
			:phone_landline, :mobile_no, :email, :ipd, :balance_lens, :created_at, :updated_at)`

	updatePrescription = `
		UPDATE prescriptions SET
			prescription_no = :prescription_no, reference_no = :reference_no, class = :class,
			prescribed_by = :prescribed_by, date = :date, retest_after = :retest_after,
			customer_id = :customer_id, title = :title, name = :name, age = :age,
			address = :address, city = :city, state = :state, pin_code = :pin_code,
			phone_landline = :phone_landline, mobile_no = :mobile_no, email = :email,
			ipd = :ipd, balance_lens = :balance_lens, updated_at = :updated_at
		WHERE id = :id`

	insertEye = `
		INSERT INTO eye_prescriptions (` + eyeColumns + `)
		VALUES (:prescription_id, :eye_type, :vision_type, :sph, :cyl, :ax, :add_power, :vn,
			:rpd, :lpd, :spherical_equivalent)`

	insertRemarks = `
		INSERT INTO prescription_remarks (` + remarksColumns + `)
		VALUES (:prescription_id, :for_constant_use, :for_distance_vision_only,
			:for_near_vision_only, :for_office_use, :for_side_vision, :retest_after_examination,
			:bifocal_lens, :progressive_lens, :anti_reflection_lens)`
)

// Save inserts r when existingID is empty and replaces the stored record
// otherwise. Eye rows are deleted and reinserted on update.
func (s *Store) Save(ctx context.Context, r prescription.Record, existingID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := existingID
	if id == "" {
		id = uuid.NewString()
	}
	r.ID = id
	rows := prescription.ToRows(r)
	now := s.now().UTC()
	rows.Prescription.CreatedAt = now
	rows.Prescription.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if existingID == "" {
		if _, err := tx.NamedExecContext(ctx, insertPrescription, rows.Prescription); err != nil {
			return "", mapError(err, "insert prescription")
		}
	} else {
		res, err := tx.NamedExecContext(ctx, updatePrescription, rows.Prescription)
		if err != nil {
			return "", mapError(err, "update prescription")
		}
		if n, err := res.RowsAffected(); err != nil {
			return "", fmt.Errorf("update prescription: %w", err)
		} else if n == 0 {
			return "", fmt.Errorf("%w: prescription %s", generic.ErrNotFound, existingID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM eye_prescriptions WHERE prescription_id = ?`, id); err != nil {
			return "", fmt.Errorf("delete eye rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM prescription_remarks WHERE prescription_id = ?`, id); err != nil {
			return "", fmt.Errorf("delete remarks: %w", err)
		}
	}

	if len(rows.Eyes) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertEye, rows.Eyes); err != nil {
			return "", mapError(err, "insert eye rows")
		}
	}
	if _, err := tx.NamedExecContext(ctx, insertRemarks, rows.Remarks); err != nil {
		return "", mapError(err, "insert remarks")
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return id, nil
}

// Load retrieves one record with its eye and remarks rows.
func (s *Store) Load(ctx context.Context, id string) (prescription.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var header prescription.PrescriptionRow
	err := s.db.GetContext(ctx, &header,
		`SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return prescription.Record{}, fmt.Errorf("%w: prescription %s", generic.ErrNotFound, id)
	}
	if err != nil {
		return prescription.Record{}, fmt.Errorf("load prescription: %w", err)
	}

	records, err := s.attach(ctx, []prescription.PrescriptionRow{header})
	if err != nil {
		return prescription.Record{}, err
	}
	return records[0], nil
}

var searchColumns = map[prescription.SearchField]string{
	prescription.SearchPrescriptionNo: "prescription_no",
	prescription.SearchReferenceNo:    "reference_no",
	prescription.SearchName:           "name",
	prescription.SearchMobileNo:       "mobile_no",
}

// Search matches prescription and reference numbers exactly (case-sensitive),
// names and mobile numbers by case-insensitive substring.
func (s *Store) Search(ctx context.Context, query string, field prescription.SearchField) ([]prescription.Record, error) {
	column, ok := searchColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrInvalidSearch, field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.TrimSpace(query)
	where := column + ` = ?`
	arg := q
	if !field.Exact() {
		where = `LOWER(` + column + `) LIKE ? ESCAPE '\'`
		arg = "%" + escapeLike(strings.ToLower(q)) + "%"
	}

	var headers []prescription.PrescriptionRow
	if err := s.db.SelectContext(ctx, &headers,
		`SELECT `+prescriptionColumns+` FROM prescriptions WHERE `+where+` ORDER BY prescription_no, id`,
		arg); err != nil {
		return nil, fmt.Errorf("search prescriptions: %w", err)
	}
	if len(headers) == 0 {
		return []prescription.Record{}, nil
	}
	return s.attach(ctx, headers)
}

// attach loads the eye and remarks rows of headers in two queries and
// builds the records.
func (s *Store) attach(ctx context.Context, headers []prescription.PrescriptionRow) ([]prescription.Record, error) {
	ids := make([]string, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}

	query, args, err := sqlx.In(`SELECT `+eyeColumns+` FROM eye_prescriptions WHERE prescription_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare eye query: %w", err)
	}
	var eyes []prescription.EyeRow
	if err := s.db.SelectContext(ctx, &eyes, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load eye rows: %w", err)
	}
	eyesByID := make(map[string][]prescription.EyeRow, len(headers))
	for _, e := range eyes {
		eyesByID[e.PrescriptionID] = append(eyesByID[e.PrescriptionID], e)
	}

	query, args, err = sqlx.In(`SELECT `+remarksColumns+` FROM prescription_remarks WHERE prescription_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare remarks query: %w", err)
	}
	var remarks []prescription.RemarksRow
	if err := s.db.SelectContext(ctx, &remarks, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load remarks: %w", err)
	}
	remarksByID := make(map[string]prescription.RemarksRow, len(remarks))
	for _, rm := range remarks {
		remarksByID[rm.PrescriptionID] = rm
	}

	out := make([]prescription.Record, len(headers))
	for i, h := range headers {
		out[i] = prescription.FromRows(prescription.Rows{
			Prescription: h,
			Eyes:         eyesByID[h.ID],
			Remarks:      remarksByID[h.ID],
		})
	}
	return out, nil
}

// =============================================================================
// BILL STORE (billing.Store interface)
// =============================================================================

const (
	billColumns = `id, kind, COALESCE(prescription_id, '') AS prescription_id, customer_name,
		advance, created_at`

	billItemColumns = `bill_id, si, product_code, description, rate, qty, tax_percent,
		discount_amount, discount_percent, amount`

	insertBill = `
		INSERT INTO bills (id, kind, prescription_id, customer_name, advance, created_at)
		VALUES (:id, :kind, NULLIF(:prescription_id, ''), :customer_name, :advance, :created_at)`

	insertBillItem = `
		INSERT INTO bill_items (` + billItemColumns + `)
		VALUES (:bill_id, :si, :product_code, :description, :rate, :qty, :tax_percent,
			:discount_amount, :discount_percent, :amount)`
)

// SaveBill inserts a bill and its items in one transaction.
func (s *Store) SaveBill(ctx context.Context, b billing.Bill) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = uuid.NewString()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	row, items := billing.ToRows(b)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertBill, row); err != nil {
		return "", mapError(err, "insert bill")
	}
	if len(items) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertBillItem, items); err != nil {
			return "", mapError(err, "insert bill items")
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return b.ID, nil
}

func (s *Store) LoadBill(ctx context.Context, id string) (billing.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row billing.BillRow
	err := s.db.GetContext(ctx, &row, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Bill{}, fmt.Errorf("%w: bill %s", generic.ErrNotFound, id)
	}
	if err != nil {
		return billing.Bill{}, fmt.Errorf("load bill: %w", err)
	}

	bills, err := s.attachItems(ctx, []billing.BillRow{row})
	if err != nil {
		return billing.Bill{}, err
	}
	return bills[0], nil
}

// ListBills returns the bills of one prescription, oldest first.
func (s *Store) ListBills(ctx context.Context, prescriptionID string) ([]billing.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []billing.BillRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+billColumns+` FROM bills WHERE prescription_id = ? ORDER BY created_at, id`,
		prescriptionID); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	if len(rows) == 0 {
		return []billing.Bill{}, nil
	}
	return s.attachItems(ctx, rows)
}

func (s *Store) attachItems(ctx context.Context, rows []billing.BillRow) ([]billing.Bill, error) {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	query, args, err := sqlx.In(`SELECT `+billItemColumns+` FROM bill_items WHERE bill_id IN (?) ORDER BY bill_id, si`, ids)
	if err != nil {
		return nil, fmt.Errorf("prepare bill items query: %w", err)
	}
	var items []billing.BillItemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load bill items: %w", err)
	}
	byBill := make(map[string][]billing.BillItemRow, len(rows))
	for _, it := range items {
		byBill[it.BillID] = append(byBill[it.BillID], it)
	}

	out := make([]billing.Bill, len(rows))
	for i, r := range rows {
		out[i] = billing.FromRows(r, byBill[r.ID])
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// mapError turns constraint violations into domain errors.
func mapError(err error, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %s", generic.ErrDuplicatePrescriptionNo, sqliteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", generic.ErrNotFound, "referenced prescription")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
