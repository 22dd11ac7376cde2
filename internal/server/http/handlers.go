package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// analyzePaper handles POST /papers/analyze.
func (s *Server) analyzePaper(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	token, err := s.deps.Analyzer.Submit(r.Context(), req.ArxivID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	logger := s.requestLogger(r)
	logger.Info().Str("arxiv_id", req.ArxivID).Str("job_id", token).Msg("paper submitted for analysis")

	writeJSON(w, http.StatusAccepted, analyzeResponse{
		JobID:     token,
		Message:   "Paper submitted for analysis",
		StatusURL: "/api/v1/papers/jobs/" + token,
	})
}

// getJobStatus handles GET /papers/jobs/{jobID}.
// Unknown tokens are reported as FAILED with status 200.
func (s *Server) getJobStatus(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "jobID")
	job, ok := s.deps.Analyzer.Job(token)
	writeJSON(w, http.StatusOK, jobToStatusResponse(token, job, ok))
}

// getPaperAnalysis handles GET /papers/{arxivID}.
func (s *Server) getPaperAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	analysis, ok := s.deps.Analyzer.GetAnalysis(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, notFoundResponse{
			Error:   "Analysis not found",
			ArxivID: id.String(),
			Message: "Please submit this paper for analysis first",
		})
		return
	}
	paper, ok := s.deps.Analyzer.Paper(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, notFoundResponse{
			Error:   "Paper not found",
			ArxivID: id.String(),
		})
		return
	}

	resp := analysisToResponse(paper, analysis)
	resp.AbstractSummaryHTML = s.renderHTML(resp.AbstractSummary)
	resp.FullSummaryHTML = s.renderHTML(resp.FullTextSummary)
	writeJSON(w, http.StatusOK, resp)
}

// getRawText handles GET /papers/{arxivID}/raw-text.
// Metadata is resolved and cached first so that unknown papers are rejected
// before any download.
func (s *Server) getRawText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	paper, ok := s.deps.Analyzer.Paper(ctx, id)
	if !ok {
		fetched, err := s.deps.Metadata.Fetch(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if fetched == nil {
			writeJSON(w, http.StatusNotFound, notFoundResponse{
				Error:   "Paper not found",
				ArxivID: id.String(),
				Message: "Could not find paper on arXiv",
			})
			return
		}
		if err := s.deps.Cache.PutPaper(ctx, fetched); err != nil {
			logger := s.requestLogger(r)
			logger.Warn().Err(err).Str("arxiv_id", id.String()).Msg("failed to cache paper metadata")
		}
		paper = fetched
	}

	text, err := s.deps.Text.Extract(ctx, id)
	if err != nil {
		logger := s.requestLogger(r)
		logger.Error().Err(err).Str("arxiv_id", id.String()).Msg("failed to extract text")
		writeJSON(w, http.StatusInternalServerError, notFoundResponse{
			Error:   "Failed to extract PDF text",
			ArxivID: id.String(),
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, rawTextResponse{
		ArxivID:     id.String(),
		Title:       paper.Title,
		RawText:     text,
		ExtractedAt: s.now(),
		TextLength:  utf8.RuneCountInString(text),
	})
}

// askQuestion handles POST /papers/{arxivID}/ask.
// The answer is grounded on the stored abstract and summaries, so a fresh
// analysis must exist.
func (s *Server) askQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := paperIDParam(w, r)
	if !ok {
		return
	}

	var req askQuestionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	analysis, hasAnalysis := s.deps.Analyzer.GetAnalysis(ctx, id)
	paper, hasPaper := s.deps.Analyzer.Paper(ctx, id)
	if !hasAnalysis || !hasPaper {
		writeJSON(w, http.StatusNotFound, notFoundResponse{
			Error:   "Paper not found",
			ArxivID: id.String(),
			Message: "Please analyze this paper first before asking questions",
		})
		return
	}

	answer := s.deps.Answerer.Answer(ctx, questionContext(paper, analysis), req.Question)

	writeJSON(w, http.StatusOK, questionResponse{
		QuestionID: uuid.New().String(),
		ArxivID:    id.String(),
		Question:   req.Question,
		Answer:     answer,
		Timestamp:  s.now(),
	})
}

func questionContext(p *domain.Paper, a *domain.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nAbstract:\n%s\n\n", p.Title, p.Abstract)
	fmt.Fprintf(&b, "Summary:\n%s\n\nKey points:\n%s", a.FullSummary, a.AbstractSummary)
	return b.String()
}

// requestLogger returns the server logger tagged with the request's IDs.
func (s *Server) requestLogger(r *http.Request) zerolog.Logger {
	return observability.LoggerFromContext(r.Context(), s.logger)
}

func (s *Server) renderHTML(markdown string) string {
	if s.deps.Renderer == nil || markdown == "" {
		return ""
	}
	html, err := s.deps.Renderer.ToHTML(markdown)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to render summary")
		return ""
	}
	return html
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes a 400 response and returns false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	trimStrings(dst)
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// trimStrings trims surrounding whitespace from every string field of the
// struct dst points to. Fields tagged `trim:"-"` are left as sent.
func trimStrings(dst interface{}) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		if v.Type().Field(i).Tag.Get("trim") == "-" {
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// validationMessage turns the first validator failure into a client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// jsonFieldName makes validator report JSON field names.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// paperIDParam validates the {arxivID} path parameter, writing a 400 on failure.
// Old-style identifiers arrive with their slash escaped as %2F.
func paperIDParam(w http.ResponseWriter, r *http.Request) (domain.PaperID, bool) {
	raw := chi.URLParam(r, "arxivID")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	id, err := domain.ParsePaperID(raw)
	if err != nil {
		writeDomainError(w, err)
		return domain.PaperID{}, false
	}
	return id, true
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Message)
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
