package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// ErrEmailNotConfigured is returned when no delivery channel is set up.
var ErrEmailNotConfigured = errors.New("notify: email delivery not configured")

// ErrMissingReport is returned when the report body is empty.
var ErrMissingReport = errors.New("notify: report text missing")

// Report is the finished complaint letter sent to the municipality.
type Report struct {
	Description string
	City        string
	Urgency     string
}

// Receipt confirms a submission.
type Receipt struct {
	ReferenceID string    `json:"reference_id"`
	SentAt      time.Time `json:"sent_at"`
}

// SubmitterConfig addresses the municipal inbox.
type SubmitterConfig struct {
	To     string
	ToName string
}

// Submitter emails finished complaints and hands back a reference ID.
type Submitter struct {
	sender EmailSender
	cfg    SubmitterConfig
	logger *logging.Logger
	now    func() time.Time
	newRef func() string
}

// NewSubmitter builds a Submitter. A nil sender makes every Submit fail with
// ErrEmailNotConfigured.
func NewSubmitter(sender EmailSender, cfg SubmitterConfig, logger *logging.Logger) *Submitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Submitter{
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newRef: NewReferenceID,
	}
}

// NewReferenceID returns "NS-" followed by eight upper-case hex digits.
func NewReferenceID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "NS-" + strings.ToUpper(id[:8])
}

// Subject is the email subject for a reference.
func Subject(referenceID string) string {
	return fmt.Sprintf("Civic Issue Report (%s)", referenceID)
}

// Submit sends r to the configured inbox.
func (s *Submitter) Submit(ctx context.Context, r Report) (Receipt, error) {
	if strings.TrimSpace(r.Description) == "" {
		return Receipt{}, ErrMissingReport
	}
	if s.sender == nil || strings.TrimSpace(s.cfg.To) == "" {
		return Receipt{}, ErrEmailNotConfigured
	}
	if strings.TrimSpace(r.City) == "" {
		r.City = "Unknown"
	}
	if strings.TrimSpace(r.Urgency) == "" {
		r.Urgency = "Normal"
	}

	ref := s.newRef()
	sentAt := s.now()
	msg := EmailMessage{
		To:      s.cfg.To,
		ToName:  s.cfg.ToName,
		Subject: Subject(ref),
		Body:    r.Description,
		HTML:    renderReport(ref, r, sentAt),

		ReferenceID: ref,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return Receipt{}, err
	}

	s.logger.Info("complaint submitted", "reference_id", ref, "city", r.City, "urgency", r.Urgency)
	return Receipt{ReferenceID: ref, SentAt: sentAt}, nil
}

func renderReport(ref string, r Report, sentAt time.Time) string {
	var b strings.Builder
	b.WriteString("<h2>Civic Issue Report</h2>\n")
	fmt.Fprintf(&b, "<p><b>Reference ID:</b> %s</p>\n", html.EscapeString(ref))
	fmt.Fprintf(&b, "<p><b>City:</b> %s</p>\n", html.EscapeString(r.City))
	fmt.Fprintf(&b, "<p><b>Urgency:</b> %s</p>\n", html.EscapeString(r.Urgency))
	b.WriteString("<hr/>\n")
	fmt.Fprintf(&b, "<pre style=\"white-space: pre-wrap; font-family: Arial;\">\n%s\n</pre>\n", html.EscapeString(r.Description))
	fmt.Fprintf(&b, "<p><i>Reported on: %s</i></p>\n", sentAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
