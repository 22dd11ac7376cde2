// Package events connects the analysis pipeline to Kafka.
//
// Publisher announces finished jobs on the events topic. Listener consumes
// submission requests from an intake topic and feeds them to the
// orchestrator, so that other services can request analyses without
// going through the HTTP API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

// Header keys set on every published message.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// messageWriter is the subset of *kafka.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherConfig holds configuration for the Kafka publisher.
type PublisherConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic receives job events.
	Topic string
	// BatchSize is the maximum number of messages per batch.
	BatchSize int
	// BatchTimeout is how long the writer waits to fill a batch.
	BatchTimeout time.Duration
}

// Publisher writes job events to Kafka as JSON, keyed by arXiv identifier.
type Publisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewPublisher creates a Kafka-backed publisher. metrics may be nil.
func NewPublisher(cfg PublisherConfig, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return newPublisher(writer, metrics, logger)
}

func newPublisher(writer messageWriter, metrics *observability.Metrics, logger zerolog.Logger) *Publisher {
	return &Publisher{
		writer:  writer,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish writes event to the topic.
func (p *Publisher) Publish(ctx context.Context, event domain.JobEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ArxivID),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
		},
		Time: event.OccurredAt,
	}

	err = p.writer.WriteMessages(ctx, msg)
	if p.metrics != nil {
		p.metrics.RecordEventPublished(event.EventType, err == nil)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}

	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("job_id", event.JobToken).
		Str("arxiv_id", event.ArxivID).
		Msg("published job event")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. It is used when Kafka is disabled.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, domain.JobEvent) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
