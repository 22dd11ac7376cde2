package domain

import (
	"time"
)

// FreshnessWindow is how long a completed analysis is served before it is
// considered stale and evicted on the next read.
const FreshnessWindow = 30 * 24 * time.Hour

// Difficulty is the reading difficulty tier assigned to a paper.
type Difficulty string

// Difficulty tiers, easiest first.
const (
	DifficultyBeginner     Difficulty = "BEGINNER"
	DifficultyIntermediate Difficulty = "INTERMEDIATE"
	DifficultyAdvanced     Difficulty = "ADVANCED"
	DifficultyExpert       Difficulty = "EXPERT"
)

var difficultyInfo = map[Difficulty]struct {
	description string
	emoji       string
}{
	DifficultyBeginner:     {"Suitable for beginners", "🟢"},
	DifficultyIntermediate: {"Requires some background knowledge", "🟡"},
	DifficultyAdvanced:     {"Requires significant expertise", "🔴"},
	DifficultyExpert:       {"Cutting-edge research level", "🟣"},
}

// AllDifficulties returns the tiers in ascending order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert}
}

// IsValid reports whether d is one of the known tiers.
func (d Difficulty) IsValid() bool {
	_, ok := difficultyInfo[d]
	return ok
}

// Description returns the human-readable explanation of the tier.
func (d Difficulty) Description() string {
	return difficultyInfo[d].description
}

// Emoji returns the badge shown next to the tier.
func (d Difficulty) Emoji() string {
	return difficultyInfo[d].emoji
}

// Citation holds the four supported citation renderings of a paper.
type Citation struct {
	APA     string
	MLA     string
	Chicago string
	BibTeX  string
}

// Analysis is the completed result of the pipeline for one paper.
type Analysis struct {
	PaperID         PaperID
	AbstractSummary string
	FullSummary     string
	Difficulty      Difficulty
	ReadingMinutes  int
	Citation        Citation
	AnalyzedAt      time.Time
}

// IsFresh reports whether the analysis is younger than window at now.
func (a *Analysis) IsFresh(now time.Time, window time.Duration) bool {
	return now.Sub(a.AnalyzedAt) < window
}

// Clone returns a copy of the analysis.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
