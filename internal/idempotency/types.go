package idempotency

import "time"

// Status values for ledger entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Reconciliation values
const (
	ReconciliationQueued   = "QUEUED"
	ReconciliationReported = "REPORTED"
)

// Record is the shape persisted in the idempotency DynamoDB table. One record
// tracks one order submission attempt per idempotency key.
type Record struct {
	IdempotencyKey     string    `dynamodbav:"idempotency_key"` // PK
	Status             string    `dynamodbav:"status"`
	ReferenceID        string    `dynamodbav:"reference_id,omitempty"`
	OrderKey           int64     `dynamodbav:"order_key,omitempty"`
	FailedStep         string    `dynamodbav:"failed_step,omitempty"`
	Retriable          bool      `dynamodbav:"retriable"`
	Reconciliation     string    `dynamodbav:"reconciliation,omitempty"`
	CreatedAt          time.Time `dynamodbav:"created_at"`
	UpdatedAt          time.Time `dynamodbav:"updated_at"`
	ExpiresAt          int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note               string    `dynamodbav:"note,omitempty"`                // store error from the failed step
	ReconciliationNote string    `dynamodbav:"reconciliation_note,omitempty"` // what operators were told
}

// Reusable reports whether a new attempt may start under this key.
func (r *Record) Reusable() bool {
	return r.Status == StatusFailed && r.Retriable
}

// Failure describes why an attempt ended.
type Failure struct {
	Step      string
	OrderKey  int64
	Retriable bool
	Note      string
}
