package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/nagrik-sahayak/internal/observability/metrics"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithDB(mock)

	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), "complaint:c1", TypeComplaintSubmitted, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.Publish(context.Background(), "c1", ComplaintSubmittedV1{ComplaintID: "c1", ReferenceID: "NS-00000001"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "aggregate", "event_type", "payload", "created_at"}).
		AddRow(id, "complaint:c1", TypeComplaintSubmitted, []byte(`{"reference_id":"NS-00000001"}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Aggregate != "complaint:c1" {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type memoryPending struct {
	entries   []OutboxEntry
	delivered []uuid.UUID
}

func (m *memoryPending) FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error) {
	return m.entries, nil
}

func (m *memoryPending) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	m.delivered = append(m.delivered, id)
	return true, nil
}

type flakyHandler struct {
	failures map[uuid.UUID]int
	calls    map[uuid.UUID]int
}

func (f *flakyHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	f.calls[entry.ID]++
	if f.calls[entry.ID] <= f.failures[entry.ID] {
		return errors.New("broker unavailable")
	}
	return nil
}

func TestDelivererRetriesWithBackoff(t *testing.T) {
	recovers, fails := uuid.New(), uuid.New()
	store := &memoryPending{entries: []OutboxEntry{
		{ID: recovers, Type: TypeComplaintFinalized},
		{ID: fails, Type: TypeComplaintSubmitted},
	}}
	handler := &flakyHandler{
		failures: map[uuid.UUID]int{recovers: 2, fails: 100},
		calls:    map[uuid.UUID]int{},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewIntakeMetrics(reg)

	d := NewDeliverer(store, handler, nil).WithMaxRetries(3).WithMetrics(m)
	d.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	assert.Equal(t, 1, d.Drain(context.Background()))
	assert.Equal(t, []uuid.UUID{recovers}, store.delivered)
	assert.Equal(t, 3, handler.calls[recovers])
	assert.Equal(t, 4, handler.calls[fails])

	count, err := testutil.GatherAndCount(reg, "nagrik_events_delivery_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaHandler(t *testing.T) {
	w := &fakeWriter{}
	h := &KafkaHandler{writer: w, topic: "complaints"}
	id := uuid.New()

	require.NoError(t, h.Handle(context.Background(), OutboxEntry{ID: id, Aggregate: "complaint:c1", Type: TypeComplaintFinalized, Payload: []byte(`{}`)}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "complaint:c1", string(w.msgs[0].Key))
	assert.Equal(t, TypeComplaintFinalized, string(w.msgs[0].Headers[0].Value))
	assert.Equal(t, id.String(), string(w.msgs[0].Headers[1].Value))

	_, err := NewKafkaHandler(KafkaConfig{}, nil)
	assert.Error(t, err)
}

type fakeSQS struct {
	input *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSHandler(t *testing.T) {
	api := &fakeSQS{}
	h := NewSQSHandler(api, "https://sqs.local/queue")
	require.NoError(t, h.Handle(context.Background(), OutboxEntry{ID: uuid.New(), Type: TypeComplaintSubmitted, Payload: []byte(`{"a":1}`)}))
	assert.Equal(t, `{"a":1}`, aws.ToString(api.input.MessageBody))
	assert.Equal(t, TypeComplaintSubmitted, aws.ToString(api.input.MessageAttributes["eventType"].StringValue))
}
