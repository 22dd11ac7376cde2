package pdf

import "strings"

// wordsPerPage is the typesetting density used to estimate page counts.
const wordsPerPage = 250

// Stats summarizes the size of an extracted text.
type Stats struct {
	Characters          int `json:"totalCharacters"`
	Words               int `json:"totalWords"`
	Lines               int `json:"totalLines"`
	Paragraphs          int `json:"totalParagraphs"`
	EstimatedPages      int `json:"estimatedPages"`
	AverageWordsPerPage int `json:"averageWordsPerPage"`
}

// ComputeStats counts characters, words, lines and paragraphs of text.
// Paragraphs are separated by blank lines.
func ComputeStats(text string) Stats {
	words := len(strings.Fields(text))
	pages := max(1, words/wordsPerPage)

	return Stats{
		Characters:          len([]rune(text)),
		Words:               words,
		Lines:               countPieces(text, "\n"),
		Paragraphs:          countPieces(text, "\n\n"),
		EstimatedPages:      pages,
		AverageWordsPerPage: words / pages,
	}
}

// countPieces splits text on sep and ignores trailing empty pieces.
func countPieces(text, sep string) int {
	if text == "" {
		return 0
	}
	pieces := strings.Split(text, sep)
	n := len(pieces)
	for n > 0 && pieces[n-1] == "" {
		n--
	}
	return n
}
