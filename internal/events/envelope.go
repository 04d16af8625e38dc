package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Source identifies this service in every envelope.
const Source = "nagrik-sahayak"

// ComplaintEvent is a versioned fact about one complaint. Event types end in
// ".v<N>".
type ComplaintEvent interface {
	EventType() string
	ComplaintRef() string
}

// Envelope is the JSON document stored in the outbox and shipped downstream.
// CorrelationID ties an event back to whatever started it: the intake
// session for a finalized complaint, the complaint itself for a submission.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	Version       int             `json:"version"`
	Aggregate     string          `json:"aggregate"`
	CorrelationID string          `json:"correlation_id"`
	Source        string          `json:"source"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

var (
	ErrNilEvent         = errors.New("events: event required")
	ErrMissingComplaint = errors.New("events: complaint reference required")
	ErrUnversionedEvent = errors.New("events: event type must end in .v<N>")
)

// ComplaintAggregate names the aggregate a complaint event belongs to.
func ComplaintAggregate(complaintID string) string {
	return "complaint:" + complaintID
}

// NewEnvelope wraps evt. An empty correlationID falls back to the complaint
// reference so every envelope can be traced.
func NewEnvelope(correlationID string, evt ComplaintEvent, at time.Time) (Envelope, error) {
	if evt == nil {
		return Envelope{}, ErrNilEvent
	}
	ref := strings.TrimSpace(evt.ComplaintRef())
	if ref == "" {
		return Envelope{}, ErrMissingComplaint
	}
	eventType := strings.TrimSpace(evt.EventType())
	version, err := typeVersion(eventType)
	if err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		correlationID = ref
	}
	return Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		Version:       version,
		Aggregate:     ComplaintAggregate(ref),
		CorrelationID: correlationID,
		Source:        Source,
		OccurredAt:    at.UTC(),
		Payload:       payload,
	}, nil
}

func typeVersion(eventType string) (int, error) {
	idx := strings.LastIndex(eventType, ".v")
	if idx <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnversionedEvent, eventType)
	}
	v, err := strconv.Atoi(eventType[idx+2:])
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnversionedEvent, eventType)
	}
	return v, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// appendEnvelope writes env to the outbox through exec, which may be a pool
// or an open transaction.
func appendEnvelope(ctx context.Context, exec execer, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	query := `
		INSERT INTO outbox (id, aggregate, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := exec.Exec(ctx, query, env.EventID, env.Aggregate, env.EventType, data); err != nil {
		return fmt.Errorf("events: append %s: %w", env.EventType, err)
	}
	return nil
}
