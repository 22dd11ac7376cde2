// Package pipeline runs paper analyses asynchronously and answers queries
// about their progress and results.
//
// # Overview
//
// Submit validates an identifier and returns a job token without waiting
// for any network or model call. When a fresh analysis is already stored,
// the job is created COMPLETED and nothing runs. Otherwise a pipeline is
// launched on the orchestrator's goroutine pool and walks the job through
// the stages:
//
//	PENDING → FETCHING_METADATA → EXTRACTING_TEXT → ANALYZING →
//	GENERATING_SUMMARY → FORMATTING_CITATIONS → COMPLETED
//
// Any error or panic moves the job to FAILED with the message attached.
// Failed pipelines store nothing and are never retried.
//
// # Thread Safety
//
// Orchestrator is safe for concurrent use. Pipelines for different jobs run
// in parallel; calls within one pipeline are strictly sequential.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/jobs"
	"github.com/helixir/paper-analysis-service/internal/observability"
	"github.com/helixir/paper-analysis-service/internal/store"
)

// eventPublishTimeout bounds how long a finished pipeline waits on the broker.
const eventPublishTimeout = 10 * time.Second

// Config controls the orchestrator's worker pool.
type Config struct {
	// MaxConcurrent bounds the number of pipelines running at once.
	// Zero means unbounded. Submissions beyond the bound wait at PENDING.
	MaxConcurrent int64
}

// Deps are the collaborators and state the orchestrator drives.
type Deps struct {
	Store      store.Store
	Jobs       jobs.Registry
	Metadata   MetadataSource
	Text       TextSource
	Summarizer Summarizer

	// Events is optional; terminal job events are dropped when nil.
	Events EventPublisher

	// Metrics is optional.
	Metrics *observability.Metrics
}

// Orchestrator accepts submissions and drives analysis pipelines.
type Orchestrator struct {
	store      store.Store
	jobs       jobs.Registry
	metadata   MetadataSource
	text       TextSource
	summarizer Summarizer
	events     EventPublisher
	metrics    *observability.Metrics
	logger     zerolog.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup
	now func() time.Time
}

// New creates an Orchestrator. Store, Jobs, Metadata, Text and Summarizer
// are required.
func New(deps Deps, cfg Config, logger zerolog.Logger) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case deps.Jobs == nil:
		return nil, errors.New("pipeline: job registry is required")
	case deps.Metadata == nil:
		return nil, errors.New("pipeline: metadata source is required")
	case deps.Text == nil:
		return nil, errors.New("pipeline: text source is required")
	case deps.Summarizer == nil:
		return nil, errors.New("pipeline: summarizer is required")
	case cfg.MaxConcurrent < 0:
		return nil, fmt.Errorf("pipeline: max concurrent must be non-negative, got %d", cfg.MaxConcurrent)
	}

	o := &Orchestrator{
		store:      deps.Store,
		jobs:       deps.Jobs,
		metadata:   deps.Metadata,
		text:       deps.Text,
		summarizer: deps.Summarizer,
		events:     deps.Events,
		metrics:    deps.Metrics,
		logger:     logger.With().Str("component", "pipeline").Logger(),
		now:        time.Now,
	}
	if cfg.MaxConcurrent > 0 {
		o.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return o, nil
}

// Submit validates raw and returns the token of the job created for it.
// Only validation failures are returned as errors; every later failure is
// recorded on the job. Submit never waits on a collaborator.
func (o *Orchestrator) Submit(ctx context.Context, raw string) (string, error) {
	id, err := domain.ParsePaperID(raw)
	if err != nil {
		return "", err
	}

	if _, ok := o.GetAnalysis(ctx, id); ok {
		job := o.jobs.CreateCompleted(id)
		if o.metrics != nil {
			o.metrics.RecordJobSubmitted(true)
		}
		logger := observability.WithJobContext(o.logger, job.Token, id.String())
		logger.Info().Msg("fresh analysis found, job completed from cache")
		return job.Token, nil
	}

	job := o.jobs.Create(id)
	if o.metrics != nil {
		o.metrics.RecordJobSubmitted(false)
	}
	logger := observability.WithJobContext(o.logger, job.Token, id.String())
	logger.Info().Msg("job submitted")

	o.launch(context.WithoutCancel(ctx), job)
	return job.Token, nil
}

// launch hands the job to the pool. The calling goroutine never blocks:
// waiting for a pool slot happens on the pipeline's own goroutine.
func (o *Orchestrator) launch(ctx context.Context, job domain.Job) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		if o.sem != nil {
			if err := o.sem.Acquire(ctx, 1); err != nil {
				o.fail(ctx, job, o.now(), err)
				return
			}
			defer o.sem.Release(1)
		}

		o.run(ctx, job)
	}()
}

// Status returns the current stage of the job. Unknown tokens report
// FAILED, which callers treat as final.
func (o *Orchestrator) Status(token string) domain.Stage {
	job, ok := o.jobs.Get(token)
	if !ok {
		return domain.StageFailed
	}
	return job.Stage
}

// Job returns a snapshot of the job.
func (o *Orchestrator) Job(token string) (domain.Job, bool) {
	return o.jobs.Get(token)
}

// GetAnalysis returns the fresh analysis for id, independent of any job.
func (o *Orchestrator) GetAnalysis(ctx context.Context, id domain.PaperID) (*domain.Analysis, bool) {
	a, err := o.store.GetAnalysis(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.logger.Warn().Err(err).Str("arxiv_id", id.String()).Msg("analysis lookup failed")
		}
		return nil, false
	}
	return a, true
}

// Paper returns the stored metadata for id.
func (o *Orchestrator) Paper(ctx context.Context, id domain.PaperID) (*domain.Paper, bool) {
	p, err := o.store.GetPaper(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.logger.Warn().Err(err).Str("arxiv_id", id.String()).Msg("paper lookup failed")
		}
		return nil, false
	}
	return p, true
}

// Wait blocks until every launched pipeline has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// WaitContext is like Wait but gives up when ctx is done.
func (o *Orchestrator) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
