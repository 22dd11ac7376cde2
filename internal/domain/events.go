package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants for job lifecycle events.
const (
	EventTypeAnalysisCompleted = "analysis.completed"
	EventTypeAnalysisFailed    = "analysis.failed"
)

// JobEvent is published when a job reaches a terminal stage.
type JobEvent struct {
	EventID      string    `json:"event_id"`
	EventVersion int       `json:"event_version"`
	EventType    string    `json:"event_type"`
	JobToken     string    `json:"job_token"`
	ArxivID      string    `json:"arxiv_id"`
	Stage        Stage     `json:"stage"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewJobEvent builds an event describing job's current state.
func NewJobEvent(eventType string, job Job) JobEvent {
	return JobEvent{
		EventID:      uuid.New().String(),
		EventVersion: 1,
		EventType:    eventType,
		JobToken:     job.Token,
		ArxivID:      job.PaperID.String(),
		Stage:        job.Stage,
		Error:        job.Error,
		OccurredAt:   time.Now().UTC(),
	}
}

// SubmissionRequest is the message consumed from the intake topic.
type SubmissionRequest struct {
	ArxivID string `json:"arxiv_id"`
}
