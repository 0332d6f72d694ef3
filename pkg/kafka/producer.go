package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
)

const EventReconciliationCompleted = "reconciliation.completed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer emits reconciliation events
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return newProducer(writer, cfg.Topic, logger)
}

func newProducer(writer messageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ReconciliationCompletedEvent summarises one finished run
type ReconciliationCompletedEvent struct {
	EventType         string    `json:"event_type"`
	RunID             string    `json:"run_id"`
	Mode              string    `json:"mode"`
	WindowStart       time.Time `json:"window_start"`
	WindowEnd         time.Time `json:"window_end"`
	PhoneNumberCount  int       `json:"phone_number_count"`
	TotalInternal     int       `json:"total_internal"`
	TotalExternal     int       `json:"total_external"`
	Matched           int       `json:"matched"`
	Unmatched         int       `json:"unmatched"`
	MatchRate         string    `json:"match_rate"`
	AverageConfidence float64   `json:"average_confidence"`
	FetchErrors       int       `json:"fetch_errors"`
	Timestamp         time.Time `json:"timestamp"`
}

// PublishReconciliationCompleted publishes a completion event keyed by run ID
func (p *Producer) PublishReconciliationCompleted(ctx context.Context, event *ReconciliationCompletedEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishReconciliationCompleted")
	defer span.End()

	event.EventType = EventReconciliationCompleted
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// The topic is set on the writer; kafka-go rejects messages that set it twice
	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "mode", Value: []byte(event.Mode)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish reconciliation event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"run_id":     event.RunID,
		"topic":      p.topic,
	}).Debug("Published reconciliation event")

	return nil
}
