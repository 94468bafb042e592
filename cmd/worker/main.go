package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
	"github.com/imrishuroy/go-certificate-orders/internal/config"
	"github.com/imrishuroy/go-certificate-orders/internal/idempotency"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	var ledger ReconciliationLedger
	if cfg.IdempotencyTable != "" {
		ledger = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.LedgerTTL)
	}
	var metrics MetricsRecorder
	if cfg.MetricsEnabled {
		metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}
	p := NewProcessor(ledger, metrics, logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"order_key":50,"idempotency_key":"local-key-1","failed_step":"PAYMENT_PENDING","items_total":1,"items_recorded":1,"amount":"14.57","detail":"local test"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{
					MessageId: "local-1",
					Body:      testBody,
				},
			},
		}
		resp, _ := p.Handle(context.Background(), event)
		if len(resp.BatchItemFailures) > 0 {
			log.Fatalf("local handler failed for %d message(s)", len(resp.BatchItemFailures))
		}
		return
	}

	lambda.Start(p.Handle)
}
