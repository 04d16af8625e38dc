// Package capability bounds calls to external AI services with per-call
// timeouts and circuit breakers, and hosts the provider adapters.
package capability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"github.com/wolfman30/nagrik-sahayak/internal/observability/metrics"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// GuardConfig tunes a Guard.
type GuardConfig struct {
	Name string
	// Timeout bounds each call. Zero means the caller's context alone applies.
	Timeout time.Duration
	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32
	// OpenFor is how long the circuit stays open before probing.
	OpenFor time.Duration
	Logger  *logging.Logger
	Metrics *metrics.IntakeMetrics
}

// Guard wraps one external capability.
type Guard struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.IntakeMetrics
}

// NewGuard builds a guard with a dedicated circuit breaker.
func NewGuard(cfg GuardConfig) *Guard {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	g := &Guard{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: isServiceHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("capability circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			g.metrics.SetBreakerOpen(name, to == gobreaker.StateOpen)
		},
	})
	return g
}

// Name returns the capability name.
func (g *Guard) Name() string { return g.name }

// State returns the breaker state.
func (g *Guard) State() gobreaker.State { return g.breaker.State() }

// Do runs fn under the breaker with the configured timeout. Calls rejected by
// an open breaker fail with intake.ErrCapabilityUnavailable.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.metrics.ObserveCapability(g.name, "rejected")
			return "", fmt.Errorf("%w: %s: %v", intake.ErrCapabilityUnavailable, g.name, err)
		}
		g.metrics.ObserveCapability(g.name, "error")
		return "", err
	}
	g.metrics.ObserveCapability(g.name, "ok")
	text, _ := out.(string)
	return text, nil
}

// isServiceHealthy decides which errors count against the breaker. Citizen-side
// speech problems and caller cancellation say nothing about the service.
func isServiceHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var terr *intake.TranscriptionError
	if errors.As(err, &terr) && terr.Reason != intake.TranscriptionServiceUnavailable {
		return true
	}
	return false
}

// Transcriber guards an intake.Transcriber.
type Transcriber struct {
	next  intake.Transcriber
	guard *Guard
}

// NewTranscriber wraps next so calls share guard's breaker and timeout. An open
// breaker surfaces as a service_unavailable TranscriptionError.
func NewTranscriber(next intake.Transcriber, guard *Guard) *Transcriber {
	return &Transcriber{next: next, guard: guard}
}

func (t *Transcriber) Transcribe(ctx context.Context, in intake.SpeechInput) (string, error) {
	text, err := t.guard.Do(ctx, func(ctx context.Context) (string, error) {
		return t.next.Transcribe(ctx, in)
	})
	if errors.Is(err, intake.ErrCapabilityUnavailable) {
		return "", intake.NewTranscriptionError(intake.TranscriptionServiceUnavailable, err)
	}
	return text, err
}

// Assessor guards an intake.ImageAssessor.
type Assessor struct {
	next  intake.ImageAssessor
	guard *Guard
}

// NewAssessor wraps next so calls share guard's breaker and timeout.
func NewAssessor(next intake.ImageAssessor, guard *Guard) *Assessor {
	return &Assessor{next: next, guard: guard}
}

func (a *Assessor) AssessImage(ctx context.Context, img intake.Image) (string, error) {
	return a.guard.Do(ctx, func(ctx context.Context) (string, error) {
		return a.next.AssessImage(ctx, img)
	})
}

// Writer guards an intake.ComplaintWriter.
type Writer struct {
	next  intake.ComplaintWriter
	guard *Guard
}

// NewWriter wraps next so calls share guard's breaker and timeout.
func NewWriter(next intake.ComplaintWriter, guard *Guard) *Writer {
	return &Writer{next: next, guard: guard}
}

func (w *Writer) WriteComplaint(ctx context.Context, payload intake.ComplaintPayload) (string, error) {
	return w.guard.Do(ctx, func(ctx context.Context) (string, error) {
		return w.next.WriteComplaint(ctx, payload)
	})
}
