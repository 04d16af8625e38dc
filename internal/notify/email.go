package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// DefaultFromName is the sender display name when none is configured.
const DefaultFromName = "Nagrik Sahayak"

// ComplaintCategory tags complaint mail at the provider so municipal bounces
// and opens can be filtered apart from account mail.
const ComplaintCategory = "civic-complaint"

// EmailSender delivers complaint emails to the municipal inbox.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one complaint letter addressed to a municipal inbox.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
	// ReferenceID is the NS- reference quoted in the subject. Providers carry
	// it as message metadata so delivery events can be traced back.
	ReferenceID string
}

// SendGridSender delivers complaint letters through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send delivers msg via SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	response, err := s.client.SendWithContext(ctx, s.complaintMail(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "reference_id", msg.ReferenceID)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected complaint", "status", response.StatusCode, "reference_id", msg.ReferenceID)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("complaint emailed via sendgrid", "reference_id", msg.ReferenceID, "status", response.StatusCode)
	return nil
}

func (s *SendGridSender) complaintMail(msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	m := mail.NewSingleEmail(mail.NewEmail(s.fromName, s.fromEmail), msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, html)
	m.AddCategories(ComplaintCategory)
	if msg.ReferenceID != "" {
		m.SetCustomArg("reference_id", msg.ReferenceID)
	}
	return m
}

// StubEmailSender logs complaint letters instead of delivering them. Used when
// no provider is configured outside production.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("email delivery disabled, complaint not sent", "reference_id", msg.ReferenceID, "to", msg.To)
	return nil
}
