// Package memory provides an in-memory Store for tests and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/generic"
	"github.com/warp/optical-engine/prescription"
)

// =============================================================================
// MEMORY STORE - Normalized rows kept in maps
// =============================================================================

// Memory implements prescription.Store and billing.Store. It keeps the same
// normalized rows the SQL store writes, so mapping is exercised the same
// way in both.
type Memory struct {
	mu sync.RWMutex

	prescriptions map[string]prescription.PrescriptionRow
	eyes          map[string][]prescription.EyeRow
	remarks       map[string]prescription.RemarksRow
	byNumber      map[string]string // prescription_no -> id

	bills     map[string]billing.BillRow
	billItems map[string][]billing.BillItemRow

	now func() time.Time
}

func New() *Memory {
	return &Memory{
		prescriptions: make(map[string]prescription.PrescriptionRow),
		eyes:          make(map[string][]prescription.EyeRow),
		remarks:       make(map[string]prescription.RemarksRow),
		byNumber:      make(map[string]string),
		bills:         make(map[string]billing.BillRow),
		billItems:     make(map[string][]billing.BillItemRow),
		now:           time.Now,
	}
}

// =============================================================================
// PRESCRIPTIONS
// =============================================================================

func (m *Memory) Load(_ context.Context, id string) (prescription.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadLocked(id)
}

func (m *Memory) loadLocked(id string) (prescription.Record, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return prescription.Record{}, fmt.Errorf("%w: prescription %s", generic.ErrNotFound, id)
	}
	return prescription.FromRows(prescription.Rows{
		Prescription: p,
		Eyes:         append([]prescription.EyeRow(nil), m.eyes[id]...),
		Remarks:      m.remarks[id],
	}), nil
}

// Search matches prescription and reference numbers exactly, names and
// mobile numbers by case-insensitive substring.
func (m *Memory) Search(_ context.Context, query string, field prescription.SearchField) ([]prescription.Record, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", generic.ErrInvalidSearch, field)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.TrimSpace(query)
	var ids []string
	for id, p := range m.prescriptions {
		if matches(p, q, field) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.prescriptions[ids[i]].PrescriptionNo < m.prescriptions[ids[j]].PrescriptionNo
	})

	out := make([]prescription.Record, 0, len(ids))
	for _, id := range ids {
		r, err := m.loadLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func matches(p prescription.PrescriptionRow, q string, field prescription.SearchField) bool {
	var value string
	switch field {
	case prescription.SearchPrescriptionNo:
		value = p.PrescriptionNo
	case prescription.SearchReferenceNo:
		value = p.ReferenceNo
	case prescription.SearchName:
		value = p.Name
	case prescription.SearchMobileNo:
		value = p.MobileNo
	}
	// numbers compare byte for byte, as the SQL store does
	if field.Exact() {
		return value == q
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(q))
}

// Save writes the header, the populated eye rows and the remarks row
// atomically. Updates replace the eye rows wholesale.
func (m *Memory) Save(_ context.Context, r prescription.Record, existingID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	err := m.withTx(func() error {
		now := m.now().UTC()
		created := now
		if existingID != "" {
			current, ok := m.prescriptions[existingID]
			if !ok {
				return fmt.Errorf("%w: prescription %s", generic.ErrNotFound, existingID)
			}
			created = current.CreatedAt
			delete(m.byNumber, current.PrescriptionNo)
			id = existingID
		} else {
			id = uuid.NewString()
		}

		if no := r.PrescriptionNo; no != "" {
			if other, taken := m.byNumber[no]; taken && other != id {
				return fmt.Errorf("%w: %s", generic.ErrDuplicatePrescriptionNo, no)
			}
			m.byNumber[no] = id
		}

		r.ID = id
		rows := prescription.ToRows(r)
		rows.Prescription.CreatedAt = created
		rows.Prescription.UpdatedAt = now
		m.prescriptions[id] = rows.Prescription
		m.eyes[id] = rows.Eyes
		m.remarks[id] = rows.Remarks
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// =============================================================================
// BILLS
// =============================================================================

func (m *Memory) SaveBill(_ context.Context, b billing.Bill) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.PrescriptionID != "" {
		if _, ok := m.prescriptions[b.PrescriptionID]; !ok {
			return "", fmt.Errorf("%w: prescription %s", generic.ErrNotFound, b.PrescriptionID)
		}
	}
	b.ID = uuid.NewString()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.now().UTC()
	}
	row, items := billing.ToRows(b)
	m.bills[b.ID] = row
	m.billItems[b.ID] = items
	return b.ID, nil
}

func (m *Memory) LoadBill(_ context.Context, id string) (billing.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.bills[id]
	if !ok {
		return billing.Bill{}, fmt.Errorf("%w: bill %s", generic.ErrNotFound, id)
	}
	return billing.FromRows(row, m.billItems[id]), nil
}

func (m *Memory) ListBills(_ context.Context, prescriptionID string) ([]billing.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []billing.Bill
	for id, row := range m.bills {
		if row.PrescriptionID == prescriptionID {
			out = append(out, billing.FromRows(row, m.billItems[id]))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

// withTx runs fn and restores the prior state if it fails. The caller
// holds the write lock.
func (m *Memory) withTx(fn func() error) error {
	snapshot := m.snapshot()
	if err := fn(); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	prescriptions map[string]prescription.PrescriptionRow
	eyes          map[string][]prescription.EyeRow
	remarks       map[string]prescription.RemarksRow
	byNumber      map[string]string
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		prescriptions: make(map[string]prescription.PrescriptionRow, len(m.prescriptions)),
		eyes:          make(map[string][]prescription.EyeRow, len(m.eyes)),
		remarks:       make(map[string]prescription.RemarksRow, len(m.remarks)),
		byNumber:      make(map[string]string, len(m.byNumber)),
	}
	for k, v := range m.prescriptions {
		s.prescriptions[k] = v
	}
	for k, v := range m.eyes {
		s.eyes[k] = append([]prescription.EyeRow(nil), v...)
	}
	for k, v := range m.remarks {
		s.remarks[k] = v
	}
	for k, v := range m.byNumber {
		s.byNumber[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.prescriptions = s.prescriptions
	m.eyes = s.eyes
	m.remarks = s.remarks
	m.byNumber = s.byNumber
}
