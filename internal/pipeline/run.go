package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/citation"
	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

// run executes the pipeline for job and records its terminal stage.
// A panic in any collaborator is converted into a job failure.
func (o *Orchestrator) run(ctx context.Context, job domain.Job) {
	start := o.now()
	ctx = observability.WithJobToken(ctx, job.Token)
	logger := observability.WithJobContext(o.logger, job.Token, job.PaperID.String())

	if o.metrics != nil {
		o.metrics.PipelinesRunning.Inc()
		defer o.metrics.PipelinesRunning.Dec()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("pipeline panicked")
			o.fail(ctx, job, start, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	if err := o.execute(ctx, job, logger); err != nil {
		o.fail(ctx, job, start, err)
		return
	}

	o.advance(job.Token, domain.StageCompleted)
	if o.metrics != nil {
		o.metrics.RecordJobCompleted(o.now().Sub(start).Seconds())
	}
	logger.Info().Dur("duration", o.now().Sub(start)).Msg("analysis completed")
	o.publish(ctx, domain.EventTypeAnalysisCompleted, job.Token)
}

// execute performs stages 1 through 7. It returns the first failure;
// nothing is stored for the analysis unless every stage succeeded.
func (o *Orchestrator) execute(ctx context.Context, job domain.Job, logger zerolog.Logger) error {
	id := job.PaperID

	o.advance(job.Token, domain.StageFetchingMetadata)
	paper, err := o.metadata.Fetch(ctx, id)
	if err != nil {
		return domain.NewCollaboratorError(domain.StageFetchingMetadata, err)
	}
	if paper == nil {
		return domain.NewNotFoundError("paper", id.String())
	}
	paper = paper.Clone()
	paper.ID = id

	if err := o.store.PutPaper(ctx, paper); err != nil {
		return fmt.Errorf("store paper: %w", err)
	}
	logger.Debug().Str("title", paper.Title).Msg("metadata stored")

	o.advance(job.Token, domain.StageExtractingText)
	text, err := o.text.Extract(ctx, id)
	if err != nil {
		return domain.NewCollaboratorError(domain.StageExtractingText, err)
	}
	logger.Debug().Int("text_length", len(text)).Msg("text extracted")

	o.advance(job.Token, domain.StageAnalyzing)

	o.advance(job.Token, domain.StageGeneratingSummary)
	abstractSummary, err := o.summarizer.SummarizeAbstract(ctx, paper.Abstract)
	if err != nil {
		return domain.NewCollaboratorError(domain.StageGeneratingSummary, err)
	}
	fullSummary, err := o.summarizer.SummarizeFull(ctx, text)
	if err != nil {
		return domain.NewCollaboratorError(domain.StageGeneratingSummary, err)
	}
	difficulty, err := o.summarizer.EstimateDifficulty(ctx, text)
	if err != nil {
		return domain.NewCollaboratorError(domain.StageGeneratingSummary, err)
	}
	readingMinutes := o.summarizer.EstimateReadingMinutes(text)

	o.advance(job.Token, domain.StageFormattingCitations)
	cite := citation.Generate(*paper)

	analysis := &domain.Analysis{
		PaperID:         id,
		AbstractSummary: abstractSummary,
		FullSummary:     fullSummary,
		Difficulty:      difficulty,
		ReadingMinutes:  readingMinutes,
		Citation:        cite,
		AnalyzedAt:      o.now(),
	}
	if err := o.store.PutAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	return nil
}

func (o *Orchestrator) advance(token string, stage domain.Stage) {
	if o.jobs.Advance(token, stage) && o.metrics != nil {
		o.metrics.RecordStageTransition(string(stage))
	}
}

// fail records err on the job and announces the failure.
func (o *Orchestrator) fail(ctx context.Context, job domain.Job, start time.Time, err error) {
	stage := o.Status(job.Token)

	if !o.jobs.Fail(job.Token, err.Error()) {
		return
	}
	if o.metrics != nil {
		o.metrics.RecordStageTransition(string(domain.StageFailed))
		o.metrics.RecordJobFailed(string(stage), o.now().Sub(start).Seconds())
	}

	logger := observability.WithJobContext(o.logger, job.Token, job.PaperID.String())
	logger.Error().Err(err).Str("stage", string(stage)).Msg("analysis failed")
	o.publish(ctx, domain.EventTypeAnalysisFailed, job.Token)
}

// publish sends the job's current state to the event publisher, if any.
// Publish failures are logged and never affect the job.
func (o *Orchestrator) publish(ctx context.Context, eventType, token string) {
	if o.events == nil {
		return
	}
	job, ok := o.jobs.Get(token)
	if !ok {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()

	err := o.events.Publish(pubCtx, domain.NewJobEvent(eventType, job))
	if o.metrics != nil {
		o.metrics.RecordEventPublished(eventType, err == nil)
	}
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", token).Str("event_type", eventType).Msg("failed to publish job event")
	}
}
