package aws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQS struct {
	mu   sync.Mutex
	sent []*sqs.SendMessageInput
	err  error
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestPublisher_PublishJSON(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/reconcile")

	if !p.Enabled() {
		t.Fatalf("expected publisher enabled")
	}

	err := p.PublishJSON(context.Background(), map[string]int{"order_key": 7}, map[string]string{
		"order_key":      "7",
		"correlation_id": "",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(mock.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.sent))
	}
	in := mock.sent[0]
	if *in.QueueUrl != "https://sqs.local/reconcile" {
		t.Fatalf("queue url mismatch: %s", *in.QueueUrl)
	}
	if *in.MessageBody != `{"order_key":7}` {
		t.Fatalf("body mismatch: %s", *in.MessageBody)
	}
	if _, ok := in.MessageAttributes["correlation_id"]; ok {
		t.Fatalf("empty attribute should be skipped")
	}
	if v := in.MessageAttributes["order_key"].StringValue; v == nil || *v != "7" {
		t.Fatalf("order_key attribute missing")
	}
}

func TestPublisher_SendError(t *testing.T) {
	p := NewPublisher(&mockSQS{err: errors.New("throttled")}, "q")
	if err := p.SendMessage(context.Background(), "{}", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPublisher_DisabledWithoutQueue(t *testing.T) {
	var p *Publisher
	if p.Enabled() {
		t.Fatalf("nil publisher must be disabled")
	}
	if NewPublisher(&mockSQS{}, "").Enabled() {
		t.Fatalf("publisher without queue must be disabled")
	}
}

func TestMetrics_Count(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewMetrics(cw, "RegistryCertificates")
	m.nowFunc = func() time.Time { return time.Unix(1700000000, 0) }

	if err := m.Count(context.Background(), MetricOrderFailed, map[string]string{"step": "ITEMS_PENDING", "env": "test"}); err != nil {
		t.Fatalf("count: %v", err)
	}

	if len(cw.inputs) != 1 {
		t.Fatalf("expected 1 put, got %d", len(cw.inputs))
	}
	datum := cw.inputs[0].MetricData[0]
	if *datum.MetricName != MetricOrderFailed || *datum.Value != 1 {
		t.Fatalf("unexpected datum %+v", datum)
	}
	if len(datum.Dimensions) != 2 || *datum.Dimensions[0].Name != "env" {
		t.Fatalf("dimensions should be sorted by name: %+v", datum.Dimensions)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	if err := m.Count(context.Background(), MetricOrderSubmitted, nil); err != nil {
		t.Fatalf("nil metrics should not fail: %v", err)
	}
}
