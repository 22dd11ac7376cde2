package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestMemory_PaperRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := domain.MustParsePaperID("2301.12345")

	_, err := m.GetPaper(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, m.PutPaper(ctx, &domain.Paper{ID: id, Title: "First", Authors: "A B"}))
	require.NoError(t, m.PutPaper(ctx, &domain.Paper{ID: id, Title: "Second"}))

	got, err := m.GetPaper(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Empty(t, got.Authors, "upsert must replace, not merge")
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := domain.MustParsePaperID("2301.12345")

	in := &domain.Paper{ID: id, Title: "Original"}
	require.NoError(t, m.PutPaper(ctx, in))
	in.Title = "mutated after put"

	out, err := m.GetPaper(ctx, id)
	require.NoError(t, err)
	out.Title = "mutated after get"

	again, err := m.GetPaper(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}

func TestMemory_RejectsZeroIdentifier(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.True(t, errors.Is(m.PutPaper(ctx, &domain.Paper{}), domain.ErrInvalidInput))
	assert.True(t, errors.Is(m.PutAnalysis(ctx, nil), domain.ErrInvalidInput))
}

func TestMemory_GetAnalysisFresh(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	id := domain.MustParsePaperID("2301.12345")

	require.NoError(t, m.PutAnalysis(ctx, &domain.Analysis{PaperID: id, AnalyzedAt: clock.Now(), FullSummary: "v1"}))
	clock.Advance(29 * 24 * time.Hour)

	got, err := m.GetAnalysis(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.FullSummary)
	assert.True(t, m.HasAnalysis(id))
}

func TestMemory_StaleAnalysisIsEvictedOnRead(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	var evicted []domain.PaperID
	m := NewMemory(WithClock(clock.Now), WithEvictionHook(func(id domain.PaperID) {
		evicted = append(evicted, id)
	}))
	id := domain.MustParsePaperID("2301.12345")

	require.NoError(t, m.PutAnalysis(ctx, &domain.Analysis{
		PaperID:    id,
		AnalyzedAt: clock.Now().Add(-31 * 24 * time.Hour),
	}))
	require.True(t, m.HasAnalysis(id), "stale entry stays until read")

	_, err := m.GetAnalysis(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, m.HasAnalysis(id), "stale entry must be evicted by the read")
	assert.Equal(t, []domain.PaperID{id}, evicted)
	assert.Equal(t, 0, m.Stats().Analyses)

	_, err = m.GetAnalysis(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Len(t, evicted, 1)
}

func TestMemory_EvictionSparesReplacement(t *testing.T) {
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	id := domain.MustParsePaperID("2301.12345")
	ctx := context.Background()

	require.NoError(t, m.PutAnalysis(ctx, &domain.Analysis{PaperID: id, AnalyzedAt: clock.Now()}))
	m.evictIfStale(id)
	assert.True(t, m.HasAnalysis(id))
}

func TestMemory_CustomFreshness(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now), WithFreshness(time.Hour))
	id := domain.MustParsePaperID("2301.12345")

	require.NoError(t, m.PutAnalysis(ctx, &domain.Analysis{PaperID: id, AnalyzedAt: clock.Now()}))
	clock.Advance(2 * time.Hour)

	_, err := m.GetAnalysis(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMemory_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < 3; i++ {
		id := domain.MustParsePaperID(fmt.Sprintf("2301.0000%d", i))
		require.NoError(t, m.PutPaper(ctx, &domain.Paper{ID: id}))
		if i > 0 {
			require.NoError(t, m.PutAnalysis(ctx, &domain.Analysis{PaperID: id, AnalyzedAt: time.Now()}))
		}
	}

	assert.Equal(t, Stats{Papers: 3, Analyses: 2}, m.Stats())

	m.Clear()
	assert.Equal(t, Stats{}, m.Stats())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := domain.MustParsePaperID(fmt.Sprintf("2301.%05d", i))
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = m.PutAnalysis(ctx, &domain.Analysis{
					PaperID:         id,
					AbstractSummary: id.String(),
					FullSummary:     id.String(),
					AnalyzedAt:      time.Now(),
				})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				a, err := m.GetAnalysis(ctx, id)
				if err == nil {
					assert.Equal(t, a.AbstractSummary, a.FullSummary)
					assert.Equal(t, id, a.PaperID)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.Stats().Analyses)
}
