package orders

import (
	"context"
	"errors"
)

// ErrNoRecordset is returned by a Store when a write procedure produced no rows.
var ErrNoRecordset = errors.New("recordset came back empty")

// Store is the registry's order-writing surface. There is no transaction
// spanning calls.
type Store interface {
	AddOrder(ctx context.Context, h Header) (CreateResult, error)
	AddOrderItem(ctx context.Context, item ItemRow) error
	AddPayment(ctx context.Context, p PaymentRow) error
}
