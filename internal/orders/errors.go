package orders

import "fmt"

// OrderCreationError means the header write failed or its outcome is unknown.
// The store may still hold the header, so retry with the same idempotency key.
type OrderCreationError struct {
	IdempotencyKey string
	Message        string
	Err            error
}

func (e *OrderCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create order: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("create order: %s", e.Message)
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

func (e *OrderCreationError) Step() State { return StateCreating }

func (e *OrderCreationError) Retriable() bool { return true }

// OrderItemError means attaching a line item failed. The header and any items
// before Index remain recorded.
type OrderItemError struct {
	OrderKey OrderKey
	Index    int
	Item     LineItem
	Err      error
}

func (e *OrderItemError) Error() string {
	return fmt.Sprintf("could not add item %d (certificate %d %q) to order %d: %v",
		e.Index+1, e.Item.CertificateID, e.Item.Name, e.OrderKey, e.Err)
}

func (e *OrderItemError) Unwrap() error { return e.Err }

func (e *OrderItemError) Step() State { return StateItemsPending }

func (e *OrderItemError) Retriable() bool { return false }

// PaymentRecordError means the payment row was not written. Funds may already
// be captured; the order exists with its items but without a payment.
type PaymentRecordError struct {
	OrderKey      OrderKey
	TransactionID string
	Err           error
}

func (e *PaymentRecordError) Error() string {
	return fmt.Sprintf("could not record payment for order %d: %v", e.OrderKey, e.Err)
}

func (e *PaymentRecordError) Unwrap() error { return e.Err }

func (e *PaymentRecordError) Step() State { return StatePaymentPending }

func (e *PaymentRecordError) Retriable() bool { return false }
