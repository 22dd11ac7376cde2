package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/helixir/paper-analysis-service/internal/pdf"
)

// edgeSampleRunes is the length of the head and tail samples in extraction checks.
const edgeSampleRunes = 500

// extractText handles GET /test/pdf/extract/{arxivID}. It runs the text
// source once and reports what came back, including the full text.
func (s *Server) extractText(w http.ResponseWriter, r *http.Request) {
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	text, err := s.deps.Text.Extract(r.Context(), id)
	elapsed := time.Since(start)
	if err == nil && pdf.IsUnavailable(text) {
		err = errors.New(text)
	}
	if err != nil {
		logger := s.requestLogger(r)
		logger.Warn().Err(err).Str("arxiv_id", id.String()).Msg("text extraction check failed")
		writeJSON(w, http.StatusOK, extractTextResponse{
			ArxivID: id.String(),
			Error:   err.Error(),
		})
		return
	}

	runes := []rune(text)
	lower := strings.ToLower(text)
	writeJSON(w, http.StatusOK, extractTextResponse{
		Success:          true,
		ArxivID:          id.String(),
		ExtractionTimeMs: elapsed.Milliseconds(),
		TextLength:       utf8.RuneCountInString(text),
		WordCount:        len(strings.Fields(text)),
		LineCount:        strings.Count(text, "\n") + 1,
		First500Chars:    string(runes[:min(edgeSampleRunes, len(runes))]),
		Last500Chars:     string(runes[max(0, len(runes)-edgeSampleRunes):]),
		FullText:         text,
		SectionsFound: map[string]bool{
			"hasAbstract":     strings.Contains(lower, "abstract"),
			"hasIntroduction": strings.Contains(lower, "introduction"),
			"hasConclusion":   strings.Contains(lower, "conclusion"),
			"hasReferences":   strings.Contains(lower, "references"),
		},
	})
}

// extractStats handles GET /test/pdf-stats/extract-stats/{arxivID}.
// Extraction failures are reported in the body with status 200.
func (s *Server) extractStats(w http.ResponseWriter, r *http.Request) {
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	text, err := s.deps.Text.Extract(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, extractStatsResponse{
			ArxivID: id.String(),
			Error:   err.Error(),
		})
		return
	}
	if pdf.IsUnavailable(text) {
		writeJSON(w, http.StatusOK, extractStatsResponse{
			ArxivID: id.String(),
			Error:   text,
		})
		return
	}

	stats := pdf.ComputeStats(text)
	writeJSON(w, http.StatusOK, extractStatsResponse{
		Success:     true,
		ArxivID:     id.String(),
		Statistics:  &stats,
		TextSamples: sampleText(text),
	})
}

// checkPaperExists handles GET /test/{arxivID}/exists.
func (s *Server) checkPaperExists(w http.ResponseWriter, r *http.Request) {
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	_, paperCached := s.deps.Analyzer.Paper(r.Context(), id)
	_, analysisExists := s.deps.Analyzer.GetAnalysis(r.Context(), id)
	writeJSON(w, http.StatusOK, existsResponse{
		ArxivID:        id.String(),
		PaperCached:    paperCached,
		AnalysisExists: analysisExists,
	})
}

// storeStats handles GET /test/stats.
func (s *Server) storeStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}

// clearCache handles DELETE /test/cache.
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	before := s.deps.Cache.Stats()
	s.deps.Cache.Clear()
	logger := s.requestLogger(r)
	logger.Info().
		Int("papers", before.Papers).
		Int("analyses", before.Analyses).
		Msg("result store cleared")
	writeJSON(w, http.StatusOK, clearCacheResponse{
		Message: "Cache cleared",
		Cleared: before.Papers + before.Analyses,
	})
}

// circuitBreakers handles GET /api/v1/circuitbreaker.
func (s *Server) circuitBreakers(w http.ResponseWriter, _ *http.Request) {
	out := map[string]circuitBreakerDetails{}
	if s.deps.Breakers != nil {
		for name, snap := range s.deps.Breakers.Snapshots() {
			out[name] = circuitBreakerDetails{
				State:                     snap.State.String(),
				FailureRate:               snap.FailureRate,
				NumberOfBufferedCalls:     snap.BufferedCalls,
				NumberOfFailedCalls:       snap.FailedCalls,
				NumberOfSuccessfulCalls:   snap.SuccessfulCalls,
				NumberOfNotPermittedCalls: snap.NotPermittedCalls,
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}
