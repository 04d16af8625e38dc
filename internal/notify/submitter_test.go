package notify

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	msgs []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestNewReferenceIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^NS-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref := NewReferenceID()
		assert.Regexp(t, re, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestSubmitterSubmit(t *testing.T) {
	sender := &recordingSender{}
	s := NewSubmitter(sender, SubmitterConfig{To: "ward@example.gov.in"}, nil)
	s.newRef = func() string { return "NS-1A2B3C4D" }
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC) }

	receipt, err := s.Submit(context.Background(), Report{Description: "Dear Sir <ward>,\nplease fix."})
	require.NoError(t, err)
	assert.Equal(t, "NS-1A2B3C4D", receipt.ReferenceID)

	require.Len(t, sender.msgs, 1)
	msg := sender.msgs[0]
	assert.Equal(t, "Civic Issue Report (NS-1A2B3C4D)", msg.Subject)
	assert.Equal(t, "ward@example.gov.in", msg.To)
	assert.Equal(t, "NS-1A2B3C4D", msg.ReferenceID)
	assert.Contains(t, msg.HTML, "<p><b>Reference ID:</b> NS-1A2B3C4D</p>")
	assert.Contains(t, msg.HTML, "<p><b>City:</b> Unknown</p>")
	assert.Contains(t, msg.HTML, "<p><b>Urgency:</b> Normal</p>")
	assert.Contains(t, msg.HTML, "Dear Sir &lt;ward&gt;,\nplease fix.")
	assert.Contains(t, msg.HTML, "Reported on: 2025-06-01 09:15:00")
}

func TestSubmitterFailures(t *testing.T) {
	_, err := NewSubmitter(&recordingSender{}, SubmitterConfig{To: "a@b.c"}, nil).Submit(context.Background(), Report{Description: " "})
	assert.ErrorIs(t, err, ErrMissingReport)
	assert.Equal(t, "notify: report text missing", err.Error())

	_, err = NewSubmitter(nil, SubmitterConfig{To: "a@b.c"}, nil).Submit(context.Background(), Report{Description: "x"})
	assert.ErrorIs(t, err, ErrEmailNotConfigured)

	_, err = NewSubmitter(&recordingSender{}, SubmitterConfig{}, nil).Submit(context.Background(), Report{Description: "x"})
	assert.ErrorIs(t, err, ErrEmailNotConfigured)

	boom := errors.New("smtp down")
	_, err = NewSubmitter(&recordingSender{err: boom}, SubmitterConfig{To: "a@b.c"}, nil).Submit(context.Background(), Report{Description: "x"})
	assert.ErrorIs(t, err, boom)
}
