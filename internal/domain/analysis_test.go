package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysis_IsFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{"just computed", 0, true},
		{"29 days", 29 * 24 * time.Hour, true},
		{"one second short of window", FreshnessWindow - time.Second, true},
		{"exactly window", FreshnessWindow, false},
		{"31 days", 31 * 24 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Analysis{AnalyzedAt: now.Add(-tt.age)}
			assert.Equal(t, tt.want, a.IsFresh(now, FreshnessWindow))
		})
	}
}

func TestDifficulty_Presentation(t *testing.T) {
	assert.Equal(t, "Suitable for beginners", DifficultyBeginner.Description())
	assert.Equal(t, "🟢", DifficultyBeginner.Emoji())
	assert.Equal(t, "Requires some background knowledge", DifficultyIntermediate.Description())
	assert.Equal(t, "🟡", DifficultyIntermediate.Emoji())
	assert.Equal(t, "Requires significant expertise", DifficultyAdvanced.Description())
	assert.Equal(t, "🔴", DifficultyAdvanced.Emoji())
	assert.Equal(t, "Cutting-edge research level", DifficultyExpert.Description())
	assert.Equal(t, "🟣", DifficultyExpert.Emoji())

	assert.False(t, Difficulty("EASY").IsValid())
	assert.Len(t, AllDifficulties(), 4)
}

func TestPaper_AuthorNamesAndYear(t *testing.T) {
	published := time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC)
	p := &Paper{
		ID:          MustParsePaperID("2301.12345"),
		Authors:     " Alice Smith ,Bob Lee,, ",
		PublishedAt: &published,
	}

	assert.Equal(t, []string{"Alice Smith", "Bob Lee"}, p.AuthorNames())
	assert.Equal(t, 2023, p.PublishedYear())

	p.PublishedAt = nil
	assert.Equal(t, 0, p.PublishedYear())
}

func TestPaper_CloneIsDeep(t *testing.T) {
	published := time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC)
	p := &Paper{Title: "Original", PublishedAt: &published}

	cp := p.Clone()
	cp.Title = "Changed"
	*cp.PublishedAt = cp.PublishedAt.AddDate(1, 0, 0)

	assert.Equal(t, "Original", p.Title)
	assert.Equal(t, 2023, p.PublishedAt.Year())

	var nilPaper *Paper
	assert.Nil(t, nilPaper.Clone())
}

func TestCollaboratorError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("summarize: %w", NewCollaboratorError(StageGeneratingSummary, cause))

	var ce *CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, StageGeneratingSummary, ce.Stage)
	assert.Equal(t, "quota exceeded", ce.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestNotFoundError_Is(t *testing.T) {
	err := NewNotFoundError("paper", "2301.12345")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "paper not found: 2301.12345", err.Error())
}
