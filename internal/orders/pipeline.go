package orders

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Submitter records orders as header, items and payment, in that order.
type Submitter struct {
	store   Store
	log     logrus.FieldLogger
	nowFunc func() time.Time
}

// NewSubmitter returns a Submitter writing to store.
func NewSubmitter(store Store, log logrus.FieldLogger) *Submitter {
	return &Submitter{
		store:   store,
		log:     log,
		nowFunc: time.Now,
	}
}

// Submit records order and returns its store-issued key.
//
// Each step runs only if the previous one succeeded, and a failure never undoes
// earlier steps. Errors are *OrderCreationError, *OrderItemError or
// *PaymentRecordError. If the store reports the idempotency key as a duplicate,
// the existing header is reused and the item and payment writes still run
// against it, so a retry after a lost header response completes the order.
//
// Submit panics if order has no payment token or idempotency key; callers must
// tokenize the card and assign a key before submitting.
func (s *Submitter) Submit(ctx context.Context, order Order) (OrderKey, error) {
	if order.PaymentToken == "" {
		panic("orders: Submit called before card tokenization")
	}
	if order.IdempotencyKey == "" {
		panic("orders: Submit called before setting idempotency key")
	}

	log := s.log.WithFields(logrus.Fields{
		"module":          "orders",
		"idempotency_key": order.IdempotencyKey,
		"reference_id":    order.ReferenceID,
	})

	// CREATING
	log.WithField("step", StateCreating).Debug("creating order header")
	res, err := s.store.AddOrder(ctx, s.header(order))
	if err != nil {
		return 0, &OrderCreationError{IdempotencyKey: order.IdempotencyKey, Message: "store call failed", Err: err}
	}
	if res.ErrorMessage != "" {
		return 0, &OrderCreationError{IdempotencyKey: order.IdempotencyKey, Message: res.ErrorMessage}
	}
	key := res.OrderKey
	log = log.WithField("order_key", key)
	if res.Duplicate {
		log.Warn("idempotency key already used; continuing with existing order header")
	}

	// ITEMS_PENDING
	unitCost := FormatAmount(order.UnitCost)
	for i, item := range order.Items {
		err := s.store.AddOrderItem(ctx, ItemRow{
			OrderKey:        key,
			OrderType:       OrderTypeDeathCertificate,
			CertificateID:   item.CertificateID,
			CertificateName: item.Name,
			Quantity:        item.Quantity,
			UnitCost:        unitCost,
		})
		if err != nil {
			itemErr := &OrderItemError{OrderKey: key, Index: i, Item: item, Err: err}
			log.WithField("step", StateItemsPending).WithError(err).Error("order left without all items")
			return 0, itemErr
		}
	}

	// PAYMENT_PENDING
	err = s.store.AddPayment(ctx, PaymentRow{
		OrderKey:      key,
		PaymentDate:   s.nowFunc().UTC(),
		TransactionID: order.PaymentToken,
		Amount:        FormatAmount(order.Total),
	})
	if err != nil {
		log.WithField("step", StatePaymentPending).WithError(err).Error("order left without a recorded payment")
		return 0, &PaymentRecordError{OrderKey: key, TransactionID: order.PaymentToken, Err: err}
	}

	log.WithField("step", StateComplete).Info("order submitted")
	return key, nil
}

func (s *Submitter) header(order Order) Header {
	date := order.OrderDate
	if date.IsZero() {
		date = s.nowFunc()
	}
	return Header{
		ReferenceID:    order.ReferenceID,
		OrderType:      OrderTypeDeathCertificate,
		OrderDate:      date.UTC(),
		ContactName:    order.ContactName,
		ContactEmail:   order.ContactEmail,
		ContactPhone:   order.ContactPhone,
		Shipping:       order.Shipping,
		Billing:        order.BillingAddress(),
		BillingLast4:   order.CardLast4,
		ServiceFee:     FormatAmount(order.ServiceFee),
		IdempotencyKey: order.IdempotencyKey,
	}
}

// FailedStep reports which pipeline step err came from, if any.
func FailedStep(err error) (State, bool) {
	var stepped interface{ Step() State }
	if errors.As(err, &stepped) {
		return stepped.Step(), true
	}
	return "", false
}

// NeedsReconciliation reports whether err left a partially recorded order behind.
func NeedsReconciliation(err error) bool {
	step, ok := FailedStep(err)
	return ok && (step == StateItemsPending || step == StatePaymentPending)
}
