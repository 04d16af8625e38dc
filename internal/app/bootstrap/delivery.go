package bootstrap

import (
	"fmt"

	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/notify"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// BuildEmailSender selects the email provider named by EMAIL_PROVIDER. A nil
// sender disables email submission. "stub" logs instead of sending.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) (notify.EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "":
		logger.Warn("email submission disabled")
		return nil, nil
	case "stub":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: SENDGRID_API_KEY is required")
		}
		return sender, nil
	case "ses":
		sender := notify.NewSESSender(ses, notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: SES client is required")
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
	}
}

// BuildEventHandler selects where outbox entries go. The returned close
// function is never nil.
func BuildEventHandler(cfg *appconfig.Config, sqsClient events.SQSAPI, logger *logging.Logger) (events.DeliveryHandler, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }
	switch cfg.EventSink {
	case "", "log":
		return events.LogHandler{Logger: logger}, noop, nil
	case "kafka":
		h, err := events.NewKafkaHandler(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, logger)
		if err != nil {
			return nil, noop, err
		}
		return h, h.Close, nil
	case "sqs":
		if sqsClient == nil || cfg.EventsQueueURL == "" {
			return nil, noop, fmt.Errorf("bootstrap: EVENTS_QUEUE_URL and an SQS client are required")
		}
		return events.NewSQSHandler(sqsClient, cfg.EventsQueueURL), noop, nil
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown event sink %q", cfg.EventSink)
	}
}
