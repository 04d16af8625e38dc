package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaHandler publishes outbox entries to one topic keyed by aggregate.
type KafkaHandler struct {
	writer messageWriter
	topic  string
	logger *logging.Logger
}

// NewKafkaHandler creates a writer for cfg.Topic.
func NewKafkaHandler(cfg KafkaConfig, logger *logging.Logger) (*KafkaHandler, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("events: kafka brokers and topic required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	logger.Info("kafka publisher initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &KafkaHandler{writer: writer, topic: cfg.Topic, logger: logger}, nil
}

func (h *KafkaHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	msg := kafka.Message{
		Key:   []byte(entry.Aggregate),
		Value: entry.Payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(entry.Type)},
			{Key: "eventId", Value: []byte(entry.ID.String())},
		},
	}
	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: kafka publish to %s: %w", h.topic, err)
	}
	return nil
}

func (h *KafkaHandler) Close() error {
	return h.writer.Close()
}
