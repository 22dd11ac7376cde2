package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, rawID string) (string, error) {
	args := m.Called(ctx, rawID)
	return args.String(0), args.Error(1)
}

// fakeReader replays queued results, then blocks until ctx is done.
type fakeReader struct {
	mu      sync.Mutex
	results []readResult
	idle    bool
	closed  bool
}

type readResult struct {
	msg kafka.Message
	err error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.results) == 0 {
		r.idle = true
		r.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := r.results[0]
	r.results = r.results[1:]
	r.mu.Unlock()
	return next.msg, next.err
}

// drained reports whether every queued result has been consumed and handled.
func (r *fakeReader) drained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idle
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func runUntilDrained(t *testing.T, l *Listener, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, r.drained, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_SubmitsRequests(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("Submit", mock.Anything, "2301.12345").Return("tok-1", nil).Once()
	sub.On("Submit", mock.Anything, "hep-th/9901001").Return("tok-2", nil).Once()

	r := &fakeReader{results: []readResult{
		{msg: kafka.Message{Value: []byte(`{"arxiv_id":"2301.12345"}`)}},
		{msg: kafka.Message{Value: []byte(`{"arxiv_id":"hep-th/9901001"}`)}},
	}}
	l := newListener(r, sub, zerolog.Nop())

	runUntilDrained(t, l, r)
	sub.AssertExpectations(t)
}

func TestListener_SkipsBadMessages(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("Submit", mock.Anything, "bogus").
		Return("", domain.NewValidationError("arxiv_id", "invalid arXiv ID format")).Once()
	sub.On("Submit", mock.Anything, "2301.12345").Return("tok-1", nil).Once()

	r := &fakeReader{results: []readResult{
		{msg: kafka.Message{Value: []byte(`not json`)}},
		{err: errors.New("transient read failure")},
		{msg: kafka.Message{Value: []byte(`{"arxiv_id":"bogus"}`)}},
		{msg: kafka.Message{Value: []byte(`{"arxiv_id":"2301.12345"}`)}},
	}}
	l := newListener(r, sub, zerolog.Nop())

	runUntilDrained(t, l, r)
	sub.AssertExpectations(t)
}

func TestListener_Close(t *testing.T) {
	r := &fakeReader{}
	l := newListener(r, new(mockSubmitter), zerolog.Nop())

	require.NoError(t, l.Close())
	assert.True(t, r.closed)
}
