package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
)

type fakeWriter struct {
	err   error
	calls int
	block bool
}

func (f *fakeWriter) WriteComplaint(ctx context.Context, p intake.ComplaintPayload) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return "letter for " + p.Area, nil
}

type fakeTranscriber struct {
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, in intake.SpeechInput) (string, error) {
	f.calls++
	return "", f.err
}

func TestGuardPassesThrough(t *testing.T) {
	w := NewWriter(&fakeWriter{}, NewGuard(GuardConfig{Name: "writer", Timeout: time.Second}))
	text, err := w.WriteComplaint(context.Background(), intake.ComplaintPayload{Area: "Ward 1"})
	require.NoError(t, err)
	assert.Equal(t, "letter for Ward 1", text)
}

func TestGuardTimeout(t *testing.T) {
	w := NewWriter(&fakeWriter{block: true}, NewGuard(GuardConfig{Name: "writer", Timeout: 20 * time.Millisecond}))
	_, err := w.WriteComplaint(context.Background(), intake.ComplaintPayload{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardOpensAfterFailures(t *testing.T) {
	inner := &fakeWriter{err: errors.New("503")}
	guard := NewGuard(GuardConfig{Name: "writer", MaxFailures: 2, OpenFor: time.Minute})
	w := NewWriter(inner, guard)

	for i := 0; i < 2; i++ {
		_, err := w.WriteComplaint(context.Background(), intake.ComplaintPayload{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, guard.State())

	_, err := w.WriteComplaint(context.Background(), intake.ComplaintPayload{})
	assert.ErrorIs(t, err, intake.ErrCapabilityUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardIgnoresCitizenSpeechErrors(t *testing.T) {
	inner := &fakeTranscriber{err: intake.NewTranscriptionError(intake.TranscriptionUnrecognized, nil)}
	guard := NewGuard(GuardConfig{Name: "speech", MaxFailures: 1})
	tr := NewTranscriber(inner, guard)

	for i := 0; i < 3; i++ {
		_, err := tr.Transcribe(context.Background(), intake.SpeechInput{})
		assert.EqualError(t, err, "Voice not understood")
	}
	assert.Equal(t, gobreaker.StateClosed, guard.State())
	assert.Equal(t, 3, inner.calls)
}

func TestGuardedTranscriberOpenCircuit(t *testing.T) {
	inner := &fakeTranscriber{err: errors.New("unavailable")}
	guard := NewGuard(GuardConfig{Name: "speech", MaxFailures: 1, OpenFor: time.Minute})
	tr := NewTranscriber(inner, guard)

	_, err := tr.Transcribe(context.Background(), intake.SpeechInput{})
	require.Error(t, err)

	_, err = tr.Transcribe(context.Background(), intake.SpeechInput{})
	var terr *intake.TranscriptionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, intake.TranscriptionServiceUnavailable, terr.Reason)
	assert.Equal(t, "Speech service not available", err.Error())
}
