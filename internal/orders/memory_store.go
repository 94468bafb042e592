package orders

import (
	"context"
	"sync"
)

// MemoryStore records orders in process memory. It is used for local
// development when no orders database is configured. Like the registry's
// procedure, a repeated idempotency key returns the existing order key, and
// rewriting an item or payment for an order replaces the earlier row.
type MemoryStore struct {
	mu       sync.Mutex
	nextKey  OrderKey
	byIdemp  map[string]OrderKey
	headers  map[OrderKey]Header
	items    map[OrderKey][]ItemRow
	payments map[OrderKey]PaymentRow
}

// NewMemoryStore returns an empty store whose first order key is firstKey.
func NewMemoryStore(firstKey OrderKey) *MemoryStore {
	return &MemoryStore{
		nextKey:  firstKey,
		byIdemp:  map[string]OrderKey{},
		headers:  map[OrderKey]Header{},
		items:    map[OrderKey][]ItemRow{},
		payments: map[OrderKey]PaymentRow{},
	}
}

func (m *MemoryStore) AddOrder(_ context.Context, h Header) (CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.byIdemp[h.IdempotencyKey]; ok {
		return CreateResult{OrderKey: key, Duplicate: true}, nil
	}
	key := m.nextKey
	m.nextKey++
	m.byIdemp[h.IdempotencyKey] = key
	m.headers[key] = h
	return CreateResult{OrderKey: key}, nil
}

func (m *MemoryStore) AddOrderItem(_ context.Context, item ItemRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.headers[item.OrderKey]; !ok {
		return ErrNoRecordset
	}
	rows := m.items[item.OrderKey]
	for i := range rows {
		if rows[i].CertificateID == item.CertificateID {
			rows[i] = item
			return nil
		}
	}
	m.items[item.OrderKey] = append(rows, item)
	return nil
}

func (m *MemoryStore) AddPayment(_ context.Context, p PaymentRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.headers[p.OrderKey]; !ok {
		return ErrNoRecordset
	}
	m.payments[p.OrderKey] = p
	return nil
}

// Items returns the line items recorded for key.
func (m *MemoryStore) Items(key OrderKey) []ItemRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ItemRow(nil), m.items[key]...)
}

// Payment returns the payment recorded for key, if any.
func (m *MemoryStore) Payment(key OrderKey) (PaymentRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[key]
	return p, ok
}
