package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
	"github.com/imrishuroy/go-certificate-orders/internal/config"
	"github.com/imrishuroy/go-certificate-orders/internal/idempotency"
)

// Processor turns reconciliation messages into operator alerts. It never
// modifies orders; cleanup of a partial order is a manual step.
type Processor struct {
	ledger  ReconciliationLedger
	metrics MetricsRecorder
	log     logrus.FieldLogger
}

// NewProcessor creates a new worker processor. ledger and metrics may be nil.
func NewProcessor(ledger ReconciliationLedger, metrics MetricsRecorder, log logrus.FieldLogger) *Processor {
	return &Processor{
		ledger:  ledger,
		metrics: metrics,
		log:     log,
	}
}

// Handle receives an SQS batch event and processes each message. Failed
// messages are reported individually so the rest of the batch is not redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			config.LogError(p.log, "worker", "Handle", "reconciliation message failed", rec.MessageId, err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg WorkerMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.IdempotencyKey == "" || msg.OrderKey == 0 {
		return fmt.Errorf("message %s lacks order key or idempotency key", rec.MessageId)
	}

	log := p.log.WithFields(logrus.Fields{
		"module":          "worker",
		"order_key":       msg.OrderKey,
		"reference_id":    msg.ReferenceID,
		"idempotency_key": msg.IdempotencyKey,
		"failed_step":     msg.FailedStep,
		"items_recorded":  msg.ItemsRecorded,
		"items_total":     msg.ItemsTotal,
		"transaction_id":  msg.TransactionID,
		"amount":          msg.Amount,
		"correlation_id":  attribute(rec, "correlation_id"),
	})
	log.Error("partial order needs manual reconciliation: " + msg.Detail)

	if p.ledger != nil {
		note := fmt.Sprintf("order %d stopped at %s with %d of %d items recorded; reported to operators",
			msg.OrderKey, msg.FailedStep, msg.ItemsRecorded, msg.ItemsTotal)
		err := p.ledger.MarkReconciliationReported(ctx, msg.IdempotencyKey, note)
		switch {
		case errors.Is(err, idempotency.ErrNotFound):
			log.Warn("no ledger record for reconciliation; it may have expired")
		case err != nil:
			return fmt.Errorf("failed to update ledger: %w", err)
		}
	}

	if p.metrics != nil {
		if err := p.metrics.Count(ctx, aws.MetricReconciliationPending, map[string]string{"step": string(msg.FailedStep)}); err != nil {
			log.WithError(err).Warn("failed to record metric")
		}
	}
	return nil
}

func attribute(rec events.SQSMessage, name string) string {
	if v, ok := rec.MessageAttributes[name]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}
