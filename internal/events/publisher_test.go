package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func completedEvent() domain.JobEvent {
	job := domain.Job{
		Token:   "tok-1",
		PaperID: domain.MustParsePaperID("2301.12345"),
		Stage:   domain.StageCompleted,
	}
	return domain.NewJobEvent(domain.EventTypeAnalysisCompleted, job)
}

func TestPublisher_Publish(t *testing.T) {
	w := new(mockWriter)
	metrics := observability.NewMetrics("test_events_publish")
	p := newPublisher(w, metrics, zerolog.Nop())
	event := completedEvent()

	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil).Once()

	require.NoError(t, p.Publish(context.Background(), event))
	w.AssertExpectations(t)

	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "2301.12345", string(msg.Key))
	assert.Equal(t, event.OccurredAt, msg.Time)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, domain.EventTypeAnalysisCompleted, headers[HeaderEventType])
	assert.Equal(t, event.EventID, headers[HeaderEventID])

	var decoded domain.JobEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "tok-1", decoded.JobToken)
	assert.Equal(t, domain.StageCompleted, decoded.Stage)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.EventsPublished.WithLabelValues(domain.EventTypeAnalysisCompleted, "success")))
}

func TestPublisher_PublishError(t *testing.T) {
	w := new(mockWriter)
	metrics := observability.NewMetrics("test_events_publish_error")
	p := newPublisher(w, metrics, zerolog.Nop())

	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	err := p.Publish(context.Background(), completedEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.EventsPublished.WithLabelValues(domain.EventTypeAnalysisCompleted, "error")))
}

func TestPublisher_NilMetrics(t *testing.T) {
	w := new(mockWriter)
	p := newPublisher(w, nil, zerolog.Nop())

	w.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	assert.NoError(t, p.Publish(context.Background(), completedEvent()))
	assert.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), completedEvent()))
	assert.NoError(t, p.Close())
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher(PublisherConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "paper-analysis.events",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}, nil, zerolog.Nop())

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "paper-analysis.events", w.Topic)
	assert.Equal(t, 100, w.BatchSize)
	assert.NoError(t, p.Close())
}
