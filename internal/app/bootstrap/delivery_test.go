package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appconfig "github.com/wolfman30/nagrik-sahayak/internal/config"
	"github.com/wolfman30/nagrik-sahayak/internal/events"
	"github.com/wolfman30/nagrik-sahayak/internal/notify"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

type fakeSES struct{}

func (fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return &sesv2.SendEmailOutput{}, nil
}

type fakeSQS struct{}

func (fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.New("error")

	sender, err := BuildEmailSender(&appconfig.Config{}, nil, logger)
	require.NoError(t, err)
	assert.Nil(t, sender)

	sender, err = BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.key"}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.SendGridSender{}, sender)

	_, err = BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid"}, nil, logger)
	assert.Error(t, err)

	sender, err = BuildEmailSender(&appconfig.Config{EmailProvider: "ses"}, fakeSES{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.SESSender{}, sender)

	_, err = BuildEmailSender(&appconfig.Config{EmailProvider: "ses"}, nil, logger)
	assert.Error(t, err)

	sender, err = BuildEmailSender(&appconfig.Config{EmailProvider: "stub"}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	_, err = BuildEmailSender(&appconfig.Config{EmailProvider: "pigeon"}, nil, logger)
	assert.Error(t, err)
}

func TestBuildEventHandler(t *testing.T) {
	logger := logging.New("error")

	h, closeFn, err := BuildEventHandler(&appconfig.Config{}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, events.LogHandler{}, h)
	assert.NoError(t, closeFn())

	h, _, err = BuildEventHandler(&appconfig.Config{EventSink: "sqs", EventsQueueURL: "http://localhost:4566/000000000000/events"}, fakeSQS{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &events.SQSHandler{}, h)

	_, _, err = BuildEventHandler(&appconfig.Config{EventSink: "sqs"}, fakeSQS{}, logger)
	assert.Error(t, err)

	h, closeFn, err = BuildEventHandler(&appconfig.Config{EventSink: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "complaints"}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &events.KafkaHandler{}, h)
	assert.NoError(t, closeFn())

	_, _, err = BuildEventHandler(&appconfig.Config{EventSink: "kafka"}, nil, logger)
	assert.Error(t, err)
}
