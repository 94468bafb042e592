package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-certificate-orders/internal/aws"
)

// A new attempt may claim a key that is unused or whose last attempt failed
// before anything was recorded.
const beginCondition = "attribute_not_exists(idempotency_key) OR (#s = :failed AND retriable = :true)"

// Store encapsulates submission ledger operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // default TTL window when creating entries
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for ledger entries.
// ttlWindow: default TTL window (e.g., 48*time.Hour)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Begin claims key for a new submission attempt with status IN_PROGRESS.
// Returns (true, nil) if the key was claimed.
// Returns (false, nil) if another attempt holds or completed the key (caller should Get to inspect).
// Returns (false, err) on other errors.
func (s *Store) Begin(ctx context.Context, key, referenceID string) (bool, error) {
	now := s.nowFunc()
	rec := Record{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		ReferenceID:    referenceID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString(beginCondition),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
			":true":   &types.AttributeValueMemberBOOL{Value: true},
		},
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}

	return true, nil
}

// Get retrieves a ledger record by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	input := &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            keyAttr(key),
		ConsistentRead: awsBool(true),
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone records the order key of a completed submission.
func (s *Store) MarkDone(ctx context.Context, key string, orderKey int64) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              keyAttr(key),
		UpdateExpression: awsString("SET #s = :done, order_key = :ok, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done": &types.AttributeValueMemberS{Value: StatusDone},
			":ok":   &types.AttributeValueMemberN{Value: strconv.FormatInt(orderKey, 10)},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item (mark done): %w", err)
	}
	return nil
}

// MarkFailed marks the record FAILED with the step that failed. Attempts that
// left a partial order behind are queued for reconciliation and keep the key
// closed to retries.
func (s *Store) MarkFailed(ctx context.Context, key string, f Failure) error {
	now := s.nowFunc()
	values := map[string]types.AttributeValue{
		":failed": &types.AttributeValueMemberS{Value: StatusFailed},
		":fs":     &types.AttributeValueMemberS{Value: f.Step},
		":rt":     &types.AttributeValueMemberBOOL{Value: f.Retriable},
		":n":      &types.AttributeValueMemberS{Value: f.Note},
		":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}
	expr := "SET #s = :failed, failed_step = :fs, retriable = :rt, note = :n, updated_at = :ua"
	if f.OrderKey != 0 {
		values[":ok"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(f.OrderKey, 10)}
		expr += ", order_key = :ok"
	}
	if !f.Retriable {
		values[":rc"] = &types.AttributeValueMemberS{Value: ReconciliationQueued}
		expr += ", reconciliation = :rc"
	}

	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              keyAttr(key),
		UpdateExpression: awsString(expr),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item (mark failed): %w", err)
	}
	return nil
}

// MarkReconciliationReported notes that operators were alerted about the
// partial order recorded under key. The failure note from MarkFailed is kept.
func (s *Store) MarkReconciliationReported(ctx context.Context, key, note string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 keyAttr(key),
		UpdateExpression:    awsString("SET reconciliation = :rc, reconciliation_note = :n, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(idempotency_key)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rc": &types.AttributeValueMemberS{Value: ReconciliationReported},
			":n":  &types.AttributeValueMemberS{Value: note},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update item (mark reconciliation): %w", err)
	}
	return nil
}

// ErrNotFound is returned when updating a key the ledger has no record of.
var ErrNotFound = errors.New("idempotency record not found")

func isConditionFailed(err error) bool {
	var sc smithy.APIError
	return errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException"
}

func keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: key},
	}
}

// Helpers
func awsString(s string) *string { return &s }
func awsBool(b bool) *bool { return &b }
