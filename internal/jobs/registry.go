// Package jobs tracks analysis jobs from submission to a terminal stage.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// Registry maps opaque job tokens to mutable job state.
type Registry interface {
	// Create registers a new job at PENDING for id and returns it.
	Create(id domain.PaperID) domain.Job

	// CreateCompleted registers a new job that is already COMPLETED.
	// Readers never observe it at any other stage.
	CreateCompleted(id domain.PaperID) domain.Job

	// Advance moves the job to stage. Unknown tokens, backward moves and
	// moves out of a terminal stage are ignored. Reports whether the job changed.
	Advance(token string, stage domain.Stage) bool

	// Fail moves a non-terminal job to FAILED with message attached.
	// Unknown tokens and terminal jobs are ignored. Reports whether the job changed.
	Fail(token, message string) bool

	// Get returns a snapshot of the job.
	Get(token string) (domain.Job, bool)
}

// Memory is the in-process Registry. Jobs are kept until Prune removes them.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

// Create implements Registry.
func (m *Memory) Create(id domain.PaperID) domain.Job {
	return m.insert(id, domain.StagePending)
}

// CreateCompleted implements Registry.
func (m *Memory) CreateCompleted(id domain.PaperID) domain.Job {
	return m.insert(id, domain.StageCompleted)
}

func (m *Memory) insert(id domain.PaperID, stage domain.Stage) domain.Job {
	now := m.now().UTC()
	job := &domain.Job{
		Token:     uuid.NewString(),
		PaperID:   id,
		Stage:     stage,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.jobs[job.Token] = job
	m.mu.Unlock()

	return *job
}

// Advance implements Registry.
func (m *Memory) Advance(token string, stage domain.Stage) bool {
	if stage == domain.StageFailed {
		return m.Fail(token, "")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[token]
	if !ok || !job.Stage.CanTransitionTo(stage) {
		return false
	}
	job.Stage = stage
	job.UpdatedAt = m.now().UTC()
	return true
}

// Fail implements Registry.
func (m *Memory) Fail(token, message string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[token]
	if !ok || job.Stage.IsTerminal() {
		return false
	}
	job.Stage = domain.StageFailed
	job.Error = message
	job.UpdatedAt = m.now().UTC()
	return true
}

// Get implements Registry.
func (m *Memory) Get(token string) (domain.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[token]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// Len returns the number of tracked jobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// Prune removes terminal jobs last updated more than olderThan ago and
// returns how many were removed. Jobs still running are never removed.
func (m *Memory) Prune(olderThan time.Duration) int {
	cutoff := m.now().UTC().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, job := range m.jobs {
		if job.Stage.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, token)
			removed++
		}
	}
	return removed
}

var _ Registry = (*Memory)(nil)
