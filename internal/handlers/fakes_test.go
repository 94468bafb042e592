package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/imrishuroy/go-certificate-orders/internal/idempotency"
	"github.com/imrishuroy/go-certificate-orders/internal/locks"
	"github.com/imrishuroy/go-certificate-orders/internal/orders"
	"github.com/imrishuroy/go-certificate-orders/internal/registry"
)

type failingRegistryStore struct{}

func (failingRegistryStore) LookupCertificates(context.Context, string) ([]registry.Certificate, error) {
	return nil, errors.New("connection reset")
}

func (failingRegistryStore) SearchCertificates(context.Context, registry.SearchQuery) (*registry.SearchResultSet, error) {
	return nil, errors.New("connection reset")
}

// flakyOrderStore wraps a MemoryStore and fails chosen steps.
type flakyOrderStore struct {
	*orders.MemoryStore
	addOrderErr error
	addItemErr  error
	paymentErr  error

	// lostResponseErr is returned after the header has been written.
	lostResponseErr error
}

func (f *flakyOrderStore) AddOrder(ctx context.Context, h orders.Header) (orders.CreateResult, error) {
	if f.addOrderErr != nil {
		return orders.CreateResult{}, f.addOrderErr
	}
	res, err := f.MemoryStore.AddOrder(ctx, h)
	if err == nil && f.lostResponseErr != nil {
		return orders.CreateResult{}, f.lostResponseErr
	}
	return res, err
}

func (f *flakyOrderStore) AddOrderItem(ctx context.Context, item orders.ItemRow) error {
	if f.addItemErr != nil {
		return f.addItemErr
	}
	return f.MemoryStore.AddOrderItem(ctx, item)
}

func (f *flakyOrderStore) AddPayment(ctx context.Context, p orders.PaymentRow) error {
	if f.paymentErr != nil {
		return f.paymentErr
	}
	return f.MemoryStore.AddPayment(ctx, p)
}

type fakeLedger struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: map[string]*idempotency.Record{}}
}

func (l *fakeLedger) Begin(_ context.Context, key, referenceID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[key]; ok && !rec.Reusable() {
		return false, nil
	}
	l.records[key] = &idempotency.Record{IdempotencyKey: key, Status: idempotency.StatusInProgress, ReferenceID: referenceID}
	return true, nil
}

func (l *fakeLedger) Get(_ context.Context, key string) (*idempotency.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (l *fakeLedger) MarkDone(_ context.Context, key string, orderKey int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.records[key]
	rec.Status = idempotency.StatusDone
	rec.OrderKey = orderKey
	return nil
}

func (l *fakeLedger) MarkFailed(_ context.Context, key string, f idempotency.Failure) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.records[key]
	rec.Status = idempotency.StatusFailed
	rec.FailedStep = f.Step
	rec.Retriable = f.Retriable
	rec.Note = f.Note
	if f.OrderKey != 0 {
		rec.OrderKey = f.OrderKey
	}
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Lock(_ context.Context, key string) (func(context.Context), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, locks.ErrHeld
	}
	l.held[key] = true
	return func(context.Context) {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	notices []orders.ReconciliationNotice
	attrs   []map[string]string
}

func (p *fakePublisher) PublishJSON(_ context.Context, v any, attributes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, v.(orders.ReconciliationNotice))
	p.attrs = append(p.attrs, attributes)
	return nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *fakeMetrics) Count(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}

func (m *fakeMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}
