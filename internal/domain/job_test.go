package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_ProgressAndDescription(t *testing.T) {
	tests := []struct {
		stage       Stage
		progress    int
		description string
	}{
		{StagePending, 0, "Analysis is queued"},
		{StageFetchingMetadata, 10, "Fetching paper metadata"},
		{StageExtractingText, 30, "Extracting PDF content"},
		{StageAnalyzing, 50, "Analyzing paper content"},
		{StageGeneratingSummary, 70, "Generating summaries"},
		{StageFormattingCitations, 90, "Formatting citations"},
		{StageCompleted, 100, "Analysis complete"},
		{StageFailed, -1, "Analysis failed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.True(t, tt.stage.IsValid())
			assert.Equal(t, tt.progress, tt.stage.Progress())
			assert.Equal(t, tt.description, tt.stage.Description())
		})
	}
}

func TestStage_ProgressIsMonotonic(t *testing.T) {
	ordered := PipelineStages()
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Progress(), ordered[i-1].Progress(), "%s after %s", ordered[i], ordered[i-1])
	}
}

func TestStage_IsTerminal(t *testing.T) {
	assert.True(t, StageCompleted.IsTerminal())
	assert.True(t, StageFailed.IsTerminal())
	assert.False(t, StagePending.IsTerminal())
	assert.False(t, StageFormattingCitations.IsTerminal())
}

func TestStage_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from, to Stage
		want     bool
	}{
		{"forward by one", StagePending, StageFetchingMetadata, true},
		{"forward skipping", StagePending, StageCompleted, true},
		{"backward", StageAnalyzing, StageExtractingText, false},
		{"same stage", StageAnalyzing, StageAnalyzing, false},
		{"fail from pending", StagePending, StageFailed, true},
		{"fail from analyzing", StageAnalyzing, StageFailed, true},
		{"leave completed", StageCompleted, StageFailed, false},
		{"leave failed", StageFailed, StageCompleted, false},
		{"unknown target", StagePending, Stage("BOGUS"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
