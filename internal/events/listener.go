package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// Submitter accepts analysis requests.
type Submitter interface {
	Submit(ctx context.Context, rawID string) (string, error)
}

// messageReader is the subset of *kafka.Reader used by Listener.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ListenerConfig holds configuration for the submission listener.
type ListenerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic carries SubmissionRequest messages.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// Listener consumes submission requests and submits them for analysis.
type Listener struct {
	reader    messageReader
	submitter Submitter
	logger    zerolog.Logger
}

// NewListener creates a new submission listener.
func NewListener(cfg ListenerConfig, submitter Submitter, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return newListener(reader, submitter, logger)
}

func newListener(reader messageReader, submitter Submitter, logger zerolog.Logger) *Listener {
	return &Listener{
		reader:    reader,
		submitter: submitter,
		logger:    logger.With().Str("component", "submission_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until ctx is cancelled.
// Malformed messages and rejected identifiers are logged and skipped.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting submission listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("submission listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received submission request")

		l.handle(ctx, msg)
	}
}

func (l *Listener) handle(ctx context.Context, msg kafka.Message) {
	var req domain.SubmissionRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		l.logger.Error().Err(err).
			Str("raw_value", string(msg.Value)).
			Msg("failed to unmarshal submission request")
		return
	}

	token, err := l.submitter.Submit(ctx, req.ArxivID)
	if err != nil {
		event := l.logger.Error()
		if errors.Is(err, domain.ErrInvalidInput) {
			event = l.logger.Warn()
		}
		event.Err(err).Str("arxiv_id", req.ArxivID).Msg("submission rejected")
		return
	}

	l.logger.Info().
		Str("arxiv_id", req.ArxivID).
		Str("job_id", token).
		Msg("submitted paper from intake topic")
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing submission listener")
	return l.reader.Close()
}
