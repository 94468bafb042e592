package main

import (
	"context"

	"github.com/imrishuroy/go-certificate-orders/internal/orders"
)

// WorkerMessage is the body of a reconciliation queue message.
type WorkerMessage = orders.ReconciliationNotice

// ReconciliationLedger records that operators were told about a partial order.
// *idempotency.Store implements it.
type ReconciliationLedger interface {
	MarkReconciliationReported(ctx context.Context, key, note string) error
}

// MetricsRecorder counts events. *aws.Metrics implements it.
type MetricsRecorder interface {
	Count(ctx context.Context, name string, dims map[string]string) error
}
