package store

import (
	"context"
	"sync"
	"time"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// Memory is a process-local Store backed by maps guarded by a RWMutex.
// Contents are lost when the process exits.
type Memory struct {
	mu       sync.RWMutex
	papers   map[domain.PaperID]*domain.Paper
	analyses map[domain.PaperID]*domain.Analysis

	now       func() time.Time
	freshness time.Duration
	onEvict   func(domain.PaperID)
}

// Option configures a Memory store.
type Option func(*Memory)

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// WithFreshness overrides the freshness window. Non-positive values are ignored.
func WithFreshness(window time.Duration) Option {
	return func(m *Memory) {
		if window > 0 {
			m.freshness = window
		}
	}
}

// WithEvictionHook registers fn to be called after a stale analysis is evicted.
func WithEvictionHook(fn func(domain.PaperID)) Option {
	return func(m *Memory) {
		m.onEvict = fn
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		papers:    make(map[domain.PaperID]*domain.Paper),
		analyses:  make(map[domain.PaperID]*domain.Analysis),
		now:       time.Now,
		freshness: domain.FreshnessWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PutPaper implements Store.
func (m *Memory) PutPaper(_ context.Context, p *domain.Paper) error {
	if p == nil || p.ID.IsZero() {
		return domain.NewValidationError("paper", "paper with a valid identifier is required")
	}

	m.mu.Lock()
	m.papers[p.ID] = p.Clone()
	m.mu.Unlock()
	return nil
}

// GetPaper implements Store.
func (m *Memory) GetPaper(_ context.Context, id domain.PaperID) (*domain.Paper, error) {
	m.mu.RLock()
	p, ok := m.papers[id]
	m.mu.RUnlock()

	if !ok {
		return nil, domain.NewNotFoundError("paper", id.String())
	}
	return p.Clone(), nil
}

// PutAnalysis implements Store.
func (m *Memory) PutAnalysis(_ context.Context, a *domain.Analysis) error {
	if a == nil || a.PaperID.IsZero() {
		return domain.NewValidationError("analysis", "analysis with a valid identifier is required")
	}

	m.mu.Lock()
	m.analyses[a.PaperID] = a.Clone()
	m.mu.Unlock()
	return nil
}

// GetAnalysis implements Store.
func (m *Memory) GetAnalysis(_ context.Context, id domain.PaperID) (*domain.Analysis, error) {
	m.mu.RLock()
	a, ok := m.analyses[id]
	m.mu.RUnlock()

	if !ok {
		return nil, domain.NewNotFoundError("analysis", id.String())
	}
	if a.IsFresh(m.now(), m.freshness) {
		return a.Clone(), nil
	}

	m.evictIfStale(id)
	return nil, domain.NewNotFoundError("analysis", id.String())
}

// evictIfStale deletes the analysis under id if it is still stale once the
// write lock is held. An analysis replaced between the read and the write
// lock is left alone.
func (m *Memory) evictIfStale(id domain.PaperID) {
	m.mu.Lock()
	current, ok := m.analyses[id]
	evicted := ok && !current.IsFresh(m.now(), m.freshness)
	if evicted {
		delete(m.analyses, id)
	}
	m.mu.Unlock()

	if evicted && m.onEvict != nil {
		m.onEvict(id)
	}
}

// HasAnalysis reports whether any analysis, fresh or stale, is held for id.
// It does not evict.
func (m *Memory) HasAnalysis(id domain.PaperID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.analyses[id]
	return ok
}

// Stats returns the number of stored papers and analyses.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Papers: len(m.papers), Analyses: len(m.analyses)}
}

// Clear removes every stored paper and analysis.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.papers = make(map[domain.PaperID]*domain.Paper)
	m.analyses = make(map[domain.PaperID]*domain.Analysis)
	m.mu.Unlock()
}

var _ Store = (*Memory)(nil)
