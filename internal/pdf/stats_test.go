package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	text := "First paragraph line one.\nLine two.\n\nSecond paragraph.\n"

	stats := ComputeStats(text)

	assert.Equal(t, len(text), stats.Characters)
	assert.Equal(t, 8, stats.Words)
	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 2, stats.Paragraphs)
	assert.Equal(t, 1, stats.EstimatedPages)
	assert.Equal(t, 8, stats.AverageWordsPerPage)
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, Stats{EstimatedPages: 1}, ComputeStats(""))
}

func TestComputeStats_PageEstimate(t *testing.T) {
	text := strings.Repeat("word ", 1000)

	stats := ComputeStats(text)

	assert.Equal(t, 1000, stats.Words)
	assert.Equal(t, 4, stats.EstimatedPages)
	assert.Equal(t, 250, stats.AverageWordsPerPage)
}
