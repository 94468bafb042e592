package orders

import (
	"context"
	"errors"
	"sync"
)

// fakeStore keeps headers keyed by idempotency key and echoes the existing
// order key for a repeated key, as the registry's procedure does. Rewritten
// items and payments replace the earlier row.
type fakeStore struct {
	mu       sync.Mutex
	nextKey  OrderKey
	byIdemp  map[string]OrderKey
	headers  []Header
	items    []ItemRow
	payments []PaymentRow

	addOrderErr  error
	addOrderMsg  string
	failItemAt   int // 1-based; 0 disables
	addItemCalls int
	paymentErr   error
	paymentCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextKey: 100, byIdemp: map[string]OrderKey{}}
}

func (f *fakeStore) AddOrder(ctx context.Context, h Header) (CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addOrderErr != nil {
		return CreateResult{}, f.addOrderErr
	}
	if f.addOrderMsg != "" {
		return CreateResult{ErrorMessage: f.addOrderMsg}, nil
	}
	if key, ok := f.byIdemp[h.IdempotencyKey]; ok {
		return CreateResult{OrderKey: key, Duplicate: true}, nil
	}
	f.nextKey++
	f.byIdemp[h.IdempotencyKey] = f.nextKey
	f.headers = append(f.headers, h)
	return CreateResult{OrderKey: f.nextKey}, nil
}

func (f *fakeStore) AddOrderItem(ctx context.Context, item ItemRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addItemCalls++
	if f.failItemAt == f.addItemCalls {
		return errors.New("likely no certificate ID in the database: " + ErrNoRecordset.Error())
	}
	for i := range f.items {
		if f.items[i].OrderKey == item.OrderKey && f.items[i].CertificateID == item.CertificateID {
			f.items[i] = item
			return nil
		}
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeStore) AddPayment(ctx context.Context, p PaymentRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paymentErr != nil {
		return f.paymentErr
	}
	f.paymentCalls++
	for i := range f.payments {
		if f.payments[i].OrderKey == p.OrderKey {
			f.payments[i] = p
			return nil
		}
	}
	f.payments = append(f.payments, p)
	return nil
}
