package orders

import (
	"errors"
	"time"
)

// ReconciliationNotice tells operators that an order was left partially
// recorded and needs manual follow-up. Nothing is rolled back automatically.
type ReconciliationNotice struct {
	OrderKey       OrderKey  `json:"order_key"`
	ReferenceID    string    `json:"reference_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	FailedStep     State     `json:"failed_step"`
	ItemsRecorded  int       `json:"items_recorded"`
	ItemsTotal     int       `json:"items_total"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	Amount         string    `json:"amount"`
	Detail         string    `json:"detail"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewReconciliationNotice describes the partial order err left behind. ok is
// false if err did not leave one.
func NewReconciliationNotice(order Order, err error, at time.Time) (ReconciliationNotice, bool) {
	n := ReconciliationNotice{
		ReferenceID:    order.ReferenceID,
		IdempotencyKey: order.IdempotencyKey,
		ItemsTotal:     len(order.Items),
		Amount:         FormatAmount(order.Total),
		Detail:         err.Error(),
		OccurredAt:     at.UTC(),
	}

	var itemErr *OrderItemError
	var payErr *PaymentRecordError
	switch {
	case errors.As(err, &itemErr):
		n.OrderKey = itemErr.OrderKey
		n.FailedStep = itemErr.Step()
		n.ItemsRecorded = itemErr.Index
	case errors.As(err, &payErr):
		n.OrderKey = payErr.OrderKey
		n.FailedStep = payErr.Step()
		n.ItemsRecorded = len(order.Items)
		n.TransactionID = payErr.TransactionID
	default:
		return ReconciliationNotice{}, false
	}
	return n, true
}
