package httpserver

import (
	"time"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/pdf"
)

// Response types for JSON serialization. Field names follow the public
// camelCase contract of the API.

type analyzeResponse struct {
	JobID     string `json:"jobId"`
	Message   string `json:"message"`
	StatusURL string `json:"statusUrl"`
}

type jobStatusResponse struct {
	JobID              string `json:"jobId"`
	ArxivID            string `json:"arxivId,omitempty"`
	Status             string `json:"status"`
	Description        string `json:"description"`
	ProgressPercentage int    `json:"progressPercentage"`
	Error              string `json:"error,omitempty"`
}

type difficultyResponse struct {
	Level       string `json:"level"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

type citationsResponse struct {
	APA     string `json:"apa"`
	MLA     string `json:"mla"`
	Chicago string `json:"chicago"`
	BibTeX  string `json:"bibtex"`
}

type paperAnalysisResponse struct {
	ArxivID                     string             `json:"arxivId"`
	Title                       string             `json:"title"`
	Authors                     string             `json:"authors"`
	AbstractText                string             `json:"abstractText"`
	AbstractSummary             string             `json:"abstractSummary"`
	AbstractSummaryHTML         string             `json:"abstractSummaryHtml,omitempty"`
	FullTextSummary             string             `json:"fullTextSummary"`
	FullSummaryHTML             string             `json:"fullSummaryHtml,omitempty"`
	Difficulty                  difficultyResponse `json:"difficulty"`
	EstimatedReadingTimeMinutes int                `json:"estimatedReadingTimeMinutes"`
	Citations                   citationsResponse  `json:"citations"`
	PublishedDate               *time.Time         `json:"publishedDate"`
	AnalyzedAt                  time.Time          `json:"analyzedAt"`
}

type notFoundResponse struct {
	Error   string `json:"error"`
	ArxivID string `json:"arxivId"`
	Message string `json:"message,omitempty"`
}

type rawTextResponse struct {
	ArxivID     string    `json:"arxivId"`
	Title       string    `json:"title"`
	RawText     string    `json:"rawText"`
	ExtractedAt time.Time `json:"extractedAt"`
	TextLength  int       `json:"textLength"`
}

type askQuestionRequest struct {
	Question string `json:"question" validate:"required,min=3,max=500"`
}

type analyzeRequest struct {
	ArxivID string `json:"arxivId" validate:"required" trim:"-"`
}

type questionResponse struct {
	QuestionID string    `json:"questionId"`
	ArxivID    string    `json:"arxivId"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Timestamp  time.Time `json:"timestamp"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Application string    `json:"application"`
	Timestamp   time.Time `json:"timestamp"`
}

type existsResponse struct {
	ArxivID        string `json:"arxivId"`
	PaperCached    bool   `json:"paperCached"`
	AnalysisExists bool   `json:"analysisExists"`
}

type extractStatsResponse struct {
	Success     bool         `json:"success"`
	ArxivID     string       `json:"arxivId"`
	Statistics  *pdf.Stats   `json:"statistics,omitempty"`
	TextSamples *textSamples `json:"textSamples,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type textSamples struct {
	Beginning     string `json:"beginning"`
	Quarter       string `json:"quarter"`
	Middle        string `json:"middle"`
	ThreeQuarters string `json:"threeQuarters"`
}

type clearCacheResponse struct {
	Message string `json:"message"`
	Cleared int    `json:"cleared"`
}

// Converter functions

func jobToStatusResponse(token string, job domain.Job, found bool) jobStatusResponse {
	stage := domain.StageFailed
	if found {
		stage = job.Stage
	}
	resp := jobStatusResponse{
		JobID:              token,
		Status:             string(stage),
		Description:        stage.Description(),
		ProgressPercentage: stage.Progress(),
	}
	if found {
		resp.ArxivID = job.PaperID.String()
		resp.Error = job.Error
	} else {
		resp.Error = "job not found"
	}
	return resp
}

func analysisToResponse(p *domain.Paper, a *domain.Analysis) paperAnalysisResponse {
	return paperAnalysisResponse{
		ArxivID:         a.PaperID.String(),
		Title:           p.Title,
		Authors:         p.Authors,
		AbstractText:    p.Abstract,
		AbstractSummary: a.AbstractSummary,
		FullTextSummary: a.FullSummary,
		Difficulty: difficultyResponse{
			Level:       string(a.Difficulty),
			Description: a.Difficulty.Description(),
			Emoji:       a.Difficulty.Emoji(),
		},
		EstimatedReadingTimeMinutes: a.ReadingMinutes,
		Citations: citationsResponse{
			APA:     a.Citation.APA,
			MLA:     a.Citation.MLA,
			Chicago: a.Citation.Chicago,
			BibTeX:  a.Citation.BibTeX,
		},
		PublishedDate: p.PublishedAt,
		AnalyzedAt:    a.AnalyzedAt,
	}
}

// sampleText takes 200-rune windows from four points of text.
func sampleText(text string) *textSamples {
	runes := []rune(text)
	quarter := len(runes) / 4
	window := func(start int) string {
		end := min(start+200, len(runes))
		return string(runes[start:end])
	}
	return &textSamples{
		Beginning:     window(0),
		Quarter:       window(quarter),
		Middle:        window(quarter * 2),
		ThreeQuarters: window(quarter * 3),
	}
}

type extractTextResponse struct {
	Success          bool            `json:"success"`
	ArxivID          string          `json:"arxivId"`
	ExtractionTimeMs int64           `json:"extractionTimeMs,omitempty"`
	TextLength       int             `json:"textLength,omitempty"`
	WordCount        int             `json:"wordCount,omitempty"`
	LineCount        int             `json:"lineCount,omitempty"`
	First500Chars    string          `json:"first500Chars,omitempty"`
	Last500Chars     string          `json:"last500Chars,omitempty"`
	FullText         string          `json:"fullText,omitempty"`
	SectionsFound    map[string]bool `json:"sectionsFound,omitempty"`
	Error            string          `json:"error,omitempty"`
}

type circuitBreakerDetails struct {
	State                     string  `json:"state"`
	FailureRate               float64 `json:"failureRate"`
	NumberOfBufferedCalls     int     `json:"numberOfBufferedCalls"`
	NumberOfFailedCalls       int     `json:"numberOfFailedCalls"`
	NumberOfSuccessfulCalls   int     `json:"numberOfSuccessfulCalls"`
	NumberOfNotPermittedCalls int64   `json:"numberOfNotPermittedCalls"`
}
