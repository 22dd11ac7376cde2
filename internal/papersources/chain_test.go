package papersources

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

type mockSource struct {
	name  string
	getFn func(ctx context.Context, id domain.PaperID) (*domain.Paper, error)
	calls int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) GetByID(ctx context.Context, id domain.PaperID) (*domain.Paper, error) {
	m.calls++
	return m.getFn(ctx, id)
}

func found(title string) func(context.Context, domain.PaperID) (*domain.Paper, error) {
	return func(_ context.Context, id domain.PaperID) (*domain.Paper, error) {
		return &domain.Paper{ID: id, Title: title}, nil
	}
}

func notFound(_ context.Context, id domain.PaperID) (*domain.Paper, error) {
	return nil, domain.NewNotFoundError("paper", id.String())
}

var chainTestID = domain.MustParsePaperID("2301.12345")

func TestChain_FirstSourceWins(t *testing.T) {
	primary := &mockSource{name: "arxiv", getFn: found("from arxiv")}
	secondary := &mockSource{name: "semantic_scholar", getFn: found("from s2")}
	chain := NewChain(zerolog.Nop(), nil, primary, secondary)

	paper, err := chain.Fetch(context.Background(), chainTestID)
	require.NoError(t, err)
	assert.Equal(t, "from arxiv", paper.Title)
	assert.Equal(t, 0, secondary.calls)
}

func TestChain_FallsBackOnNotFoundAndError(t *testing.T) {
	tests := []struct {
		name  string
		first func(context.Context, domain.PaperID) (*domain.Paper, error)
	}{
		{"not found", notFound},
		{"nil paper", func(context.Context, domain.PaperID) (*domain.Paper, error) { return nil, nil }},
		{"upstream error", func(context.Context, domain.PaperID) (*domain.Paper, error) {
			return nil, domain.NewExternalAPIError("arXiv", 503, "unavailable", nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(zerolog.Nop(), nil,
				&mockSource{name: "arxiv", getFn: tt.first},
				&mockSource{name: "semantic_scholar", getFn: found("from s2")},
			)

			paper, err := chain.Fetch(context.Background(), chainTestID)
			require.NoError(t, err)
			assert.Equal(t, "from s2", paper.Title)
		})
	}
}

func TestChain_AbsentWhenNoSourceHasPaper(t *testing.T) {
	chain := NewChain(zerolog.Nop(), nil,
		&mockSource{name: "arxiv", getFn: notFound},
		&mockSource{name: "semantic_scholar", getFn: func(context.Context, domain.PaperID) (*domain.Paper, error) {
			return nil, errors.New("timeout")
		}},
	)

	paper, err := chain.Fetch(context.Background(), chainTestID)
	assert.NoError(t, err)
	assert.Nil(t, paper)
}

func TestChain_ReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	secondary := &mockSource{name: "semantic_scholar", getFn: found("x")}
	chain := NewChain(zerolog.Nop(), nil,
		&mockSource{name: "arxiv", getFn: func(ctx context.Context, _ domain.PaperID) (*domain.Paper, error) {
			return nil, ctx.Err()
		}},
		secondary,
	)

	_, err := chain.Fetch(ctx, chainTestID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, secondary.calls)
}

func TestChain_Sources(t *testing.T) {
	chain := NewChain(zerolog.Nop(), nil,
		&mockSource{name: "arxiv"},
		&mockSource{name: "semantic_scholar"},
	)
	assert.Equal(t, []string{"arxiv", "semantic_scholar"}, chain.Sources())
}
