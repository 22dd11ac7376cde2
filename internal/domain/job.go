package domain

import (
	"time"
)

// Stage is a step in the analysis pipeline.
type Stage string

// Pipeline stages in their fixed forward order. StageFailed is reachable
// from any non-terminal stage.
const (
	StagePending             Stage = "PENDING"
	StageFetchingMetadata    Stage = "FETCHING_METADATA"
	StageExtractingText      Stage = "EXTRACTING_TEXT"
	StageAnalyzing           Stage = "ANALYZING"
	StageGeneratingSummary   Stage = "GENERATING_SUMMARY"
	StageFormattingCitations Stage = "FORMATTING_CITATIONS"
	StageCompleted           Stage = "COMPLETED"
	StageFailed              Stage = "FAILED"
)

type stageInfo struct {
	order       int
	progress    int
	description string
}

var stages = map[Stage]stageInfo{
	StagePending:             {0, 0, "Analysis is queued"},
	StageFetchingMetadata:    {1, 10, "Fetching paper metadata"},
	StageExtractingText:      {2, 30, "Extracting PDF content"},
	StageAnalyzing:           {3, 50, "Analyzing paper content"},
	StageGeneratingSummary:   {4, 70, "Generating summaries"},
	StageFormattingCitations: {5, 90, "Formatting citations"},
	StageCompleted:           {6, 100, "Analysis complete"},
	StageFailed:              {7, -1, "Analysis failed"},
}

// PipelineStages returns the non-failure stages in order.
func PipelineStages() []Stage {
	return []Stage{
		StagePending,
		StageFetchingMetadata,
		StageExtractingText,
		StageAnalyzing,
		StageGeneratingSummary,
		StageFormattingCitations,
		StageCompleted,
	}
}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	_, ok := stages[s]
	return ok
}

// Progress returns the completion percentage for the stage, -1 for FAILED.
func (s Stage) Progress() int {
	return stages[s].progress
}

// Description returns the human-readable stage description.
func (s Stage) Description() string {
	return stages[s].description
}

// IsTerminal reports whether no further transitions are possible.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// CanTransitionTo reports whether moving from s to next respects the stage
// order: strictly forward, with FAILED reachable from any non-terminal stage.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return stages[next].order > stages[s].order
}

// Job tracks one submission through the pipeline.
type Job struct {
	// Token is the opaque handle returned to the submitter.
	Token string

	// PaperID is the identifier being analyzed.
	PaperID PaperID

	// Stage is the last committed stage.
	Stage Stage

	// Error is set when Stage is FAILED.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}
