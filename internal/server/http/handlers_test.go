package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/store"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockAnalyzer implements Analyzer for HTTP handler tests.
type mockAnalyzer struct {
	mu       sync.Mutex
	submitFn func(ctx context.Context, rawID string) (string, error)
	jobFn    func(token string) (domain.Job, bool)
	analyses map[domain.PaperID]*domain.Analysis
	papers   map[domain.PaperID]*domain.Paper
}

func (m *mockAnalyzer) Submit(ctx context.Context, rawID string) (string, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, rawID)
	}
	return "", errors.New("not implemented")
}

func (m *mockAnalyzer) Job(token string) (domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobFn != nil {
		return m.jobFn(token)
	}
	return domain.Job{}, false
}

func (m *mockAnalyzer) GetAnalysis(_ context.Context, id domain.PaperID) (*domain.Analysis, bool) {
	a, ok := m.analyses[id]
	return a, ok
}

func (m *mockAnalyzer) Paper(_ context.Context, id domain.PaperID) (*domain.Paper, bool) {
	p, ok := m.papers[id]
	return p, ok
}

type mockText struct {
	extractFn func(ctx context.Context, id domain.PaperID) (string, error)
	calls     int
}

func (m *mockText) Extract(ctx context.Context, id domain.PaperID) (string, error) {
	m.calls++
	if m.extractFn != nil {
		return m.extractFn(ctx, id)
	}
	return "", nil
}

type mockMetadata struct {
	fetchFn func(ctx context.Context, id domain.PaperID) (*domain.Paper, error)
}

func (m *mockMetadata) Fetch(ctx context.Context, id domain.PaperID) (*domain.Paper, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, id)
	}
	return nil, nil
}

type mockAnswerer struct {
	gotContext  string
	gotQuestion string
}

func (m *mockAnswerer) Answer(_ context.Context, paperContext, question string) string {
	m.gotContext = paperContext
	m.gotQuestion = question
	return "It proposes a new attention variant."
}

type wrapRenderer struct{}

func (wrapRenderer) ToHTML(source string) (string, error) {
	return "<p>" + source + "</p>\n", nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type testDeps struct {
	analyzer *mockAnalyzer
	text     *mockText
	metadata *mockMetadata
	answerer *mockAnswerer
	cache    *store.Memory
}

func newTestDeps() *testDeps {
	return &testDeps{
		analyzer: &mockAnalyzer{
			analyses: map[domain.PaperID]*domain.Analysis{},
			papers:   map[domain.PaperID]*domain.Paper{},
		},
		text:     &mockText{},
		metadata: &mockMetadata{},
		answerer: &mockAnswerer{},
		cache:    store.NewMemory(),
	}
}

// newTestHTTPServer creates a Server configured for testing with mocked dependencies.
func newTestHTTPServer(d *testDeps) *Server {
	s := NewServer(Config{
		ApplicationName:    "paper-analysis-test",
		StreamPollInterval: 5 * time.Millisecond,
		StreamMaxDuration:  2 * time.Second,
	}, Deps{
		Analyzer: d.analyzer,
		Text:     d.text,
		Metadata: d.metadata,
		Answerer: d.answerer,
		Cache:    d.cache,
		Renderer: wrapRenderer{},
	}, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, r)
	return rr
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func samplePaper() *domain.Paper {
	published := time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC)
	return &domain.Paper{
		ID:          domain.MustParsePaperID("2301.12345"),
		Title:       "Attention Revisited",
		Authors:     "Alice Smith, Bob Lee",
		Abstract:    "We revisit attention.",
		PublishedAt: &published,
	}
}

func sampleAnalysis() *domain.Analysis {
	return &domain.Analysis{
		PaperID:         domain.MustParsePaperID("2301.12345"),
		AbstractSummary: "**Key** points",
		FullSummary:     "A full summary",
		Difficulty:      domain.DifficultyAdvanced,
		ReadingMinutes:  42,
		Citation: domain.Citation{
			APA:     "Smith, A., & Lee, B. (2023). Attention Revisited. arXiv preprint arXiv:2301.12345.",
			MLA:     "mla",
			Chicago: "chicago",
			BibTeX:  "@article{smith2023attention}",
		},
		AnalyzedAt: time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Tests: analyzePaper
// ---------------------------------------------------------------------------

func TestAnalyzePaper_Accepted(t *testing.T) {
	d := newTestDeps()
	var submitted string
	d.analyzer.submitFn = func(_ context.Context, rawID string) (string, error) {
		submitted = rawID
		return "tok-123", nil
	}
	srv := newTestHTTPServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/analyze", bytes.NewBufferString(`{"arxivId":"2301.12345"}`))
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp analyzeResponse
	decodeJSON(t, rr, &resp)

	if resp.JobID != "tok-123" {
		t.Errorf("expected jobId tok-123, got %q", resp.JobID)
	}
	if resp.Message != "Paper submitted for analysis" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.StatusURL != "/api/v1/papers/jobs/tok-123" {
		t.Errorf("unexpected statusUrl %q", resp.StatusURL)
	}
	if submitted != "2301.12345" {
		t.Errorf("expected id to be submitted, got %q", submitted)
	}
}

func TestAnalyzePaper_PaddedIDRejected(t *testing.T) {
	for name, body := range map[string]string{
		"surrounding spaces": `{"arxivId":" 2301.12345 "}`,
		"trailing newline":   `{"arxivId":"2301.12345\n"}`,
		"blank":              `{"arxivId":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			d := newTestDeps()
			var submitted string
			d.analyzer.submitFn = func(_ context.Context, rawID string) (string, error) {
				submitted = rawID
				_, err := domain.ParsePaperID(rawID)
				return "", err
			}
			srv := newTestHTTPServer(d)

			rr := serveHTTP(srv, httptest.NewRequest(http.MethodPost, "/api/v1/papers/analyze", bytes.NewBufferString(body)))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
			if strings.TrimSpace(submitted) == submitted {
				t.Errorf("expected the id to reach validation unmodified, got %q", submitted)
			}
		})
	}
}

func TestTrimStrings(t *testing.T) {
	req := struct {
		Question string
		ArxivID  string `trim:"-"`
	}{Question: "  why?  ", ArxivID: " 2301.12345 "}

	trimStrings(&req)

	if req.Question != "why?" {
		t.Errorf("expected question to be trimmed, got %q", req.Question)
	}
	if req.ArxivID != " 2301.12345 " {
		t.Errorf("expected id to be left as sent, got %q", req.ArxivID)
	}
}

func TestAnalyzePaper_InvalidID(t *testing.T) {
	d := newTestDeps()
	d.analyzer.submitFn = func(_ context.Context, rawID string) (string, error) {
		_, err := domain.ParsePaperID(rawID)
		return "", err
	}
	srv := newTestHTTPServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/analyze", bytes.NewBufferString(`{"arxivId":"not-an-id"}`))
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "invalid arXiv ID format" {
		t.Errorf("unexpected error %q", resp["error"])
	}
}

func TestAnalyzePaper_BadBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"invalid json", `{`, "invalid JSON request body"},
		{"missing id", `{}`, "arxivId is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestHTTPServer(newTestDeps())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/analyze", bytes.NewBufferString(tt.body))
			rr := serveHTTP(srv, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if resp["error"] != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, resp["error"])
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Tests: getJobStatus
// ---------------------------------------------------------------------------

func TestGetJobStatus_Known(t *testing.T) {
	d := newTestDeps()
	d.analyzer.jobFn = func(token string) (domain.Job, bool) {
		return domain.Job{Token: token, PaperID: domain.MustParsePaperID("2301.12345"), Stage: domain.StageAnalyzing}, true
	}
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/jobs/tok-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp jobStatusResponse
	decodeJSON(t, rr, &resp)

	if resp.Status != "ANALYZING" || resp.ProgressPercentage != 50 {
		t.Errorf("unexpected status %q / %d", resp.Status, resp.ProgressPercentage)
	}
	if resp.Description != "Analyzing paper content" {
		t.Errorf("unexpected description %q", resp.Description)
	}
	if resp.ArxivID != "2301.12345" {
		t.Errorf("unexpected arxivId %q", resp.ArxivID)
	}
}

func TestGetJobStatus_UnknownReportsFailed(t *testing.T) {
	srv := newTestHTTPServer(newTestDeps())

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/jobs/nope", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp jobStatusResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "FAILED" || resp.ProgressPercentage != -1 {
		t.Errorf("expected FAILED/-1, got %q/%d", resp.Status, resp.ProgressPercentage)
	}
}

// ---------------------------------------------------------------------------
// Tests: getPaperAnalysis
// ---------------------------------------------------------------------------

func TestGetPaperAnalysis_Success(t *testing.T) {
	d := newTestDeps()
	p, a := samplePaper(), sampleAnalysis()
	d.analyzer.papers[p.ID] = p
	d.analyzer.analyses[p.ID] = a
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/2301.12345", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp paperAnalysisResponse
	decodeJSON(t, rr, &resp)

	if resp.Title != "Attention Revisited" || resp.Authors != "Alice Smith, Bob Lee" {
		t.Errorf("paper fields not joined: %+v", resp)
	}
	if resp.Difficulty.Level != "ADVANCED" || resp.Difficulty.Emoji != "🔴" {
		t.Errorf("unexpected difficulty %+v", resp.Difficulty)
	}
	if resp.EstimatedReadingTimeMinutes != 42 {
		t.Errorf("unexpected reading time %d", resp.EstimatedReadingTimeMinutes)
	}
	if resp.Citations.BibTeX != "@article{smith2023attention}" {
		t.Errorf("unexpected bibtex %q", resp.Citations.BibTeX)
	}
	if resp.AbstractSummaryHTML != "<p>**Key** points</p>\n" {
		t.Errorf("unexpected html %q", resp.AbstractSummaryHTML)
	}
	if resp.PublishedDate == nil || resp.PublishedDate.Year() != 2023 {
		t.Errorf("unexpected published date %v", resp.PublishedDate)
	}
}

func TestGetPaperAnalysis_NotFound(t *testing.T) {
	srv := newTestHTTPServer(newTestDeps())

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/2301.12345", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var resp notFoundResponse
	decodeJSON(t, rr, &resp)
	if resp.Error != "Analysis not found" || resp.Message != "Please submit this paper for analysis first" {
		t.Errorf("unexpected body %+v", resp)
	}
	if resp.ArxivID != "2301.12345" {
		t.Errorf("unexpected arxivId %q", resp.ArxivID)
	}
}

func TestGetPaperAnalysis_OldStyleEscapedID(t *testing.T) {
	d := newTestDeps()
	id := domain.MustParsePaperID("hep-th/9901001")
	p := samplePaper()
	p.ID = id
	a := sampleAnalysis()
	a.PaperID = id
	d.analyzer.papers[id] = p
	d.analyzer.analyses[id] = a
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/hep-th%2F9901001", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp paperAnalysisResponse
	decodeJSON(t, rr, &resp)
	if resp.ArxivID != "hep-th/9901001" {
		t.Errorf("unexpected arxivId %q", resp.ArxivID)
	}
}

func TestGetPaperAnalysis_InvalidID(t *testing.T) {
	srv := newTestHTTPServer(newTestDeps())

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/2301.123", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Tests: getRawText
// ---------------------------------------------------------------------------

func TestGetRawText_FetchesAndCachesMetadata(t *testing.T) {
	d := newTestDeps()
	d.metadata.fetchFn = func(_ context.Context, id domain.PaperID) (*domain.Paper, error) {
		p := samplePaper()
		p.ID = id
		return p, nil
	}
	d.text.extractFn = func(_ context.Context, _ domain.PaperID) (string, error) {
		return "héllo world", nil
	}
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/2301.12345/raw-text", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp rawTextResponse
	decodeJSON(t, rr, &resp)
	if resp.RawText != "héllo world" || resp.TextLength != 11 {
		t.Errorf("unexpected text %q (%d)", resp.RawText, resp.TextLength)
	}
	if resp.Title != "Attention Revisited" {
		t.Errorf("unexpected title %q", resp.Title)
	}
	if d.cache.Stats().Papers != 1 {
		t.Errorf("expected fetched paper to be cached")
	}
}

func TestGetRawText_UnknownPaper(t *testing.T) {
	d := newTestDeps()
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/2301.12345/raw-text", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if d.text.calls != 0 {
		t.Errorf("expected no text extraction for unknown paper")
	}
}

// ---------------------------------------------------------------------------
// Tests: askQuestion
// ---------------------------------------------------------------------------

func TestAskQuestion_Success(t *testing.T) {
	d := newTestDeps()
	p, a := samplePaper(), sampleAnalysis()
	d.analyzer.papers[p.ID] = p
	d.analyzer.analyses[p.ID] = a
	srv := newTestHTTPServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/2301.12345/ask", bytes.NewBufferString(`{"question":"What is new here?"}`))
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp questionResponse
	decodeJSON(t, rr, &resp)
	if resp.QuestionID == "" {
		t.Error("expected questionId to be set")
	}
	if resp.Answer != "It proposes a new attention variant." {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if d.answerer.gotQuestion != "What is new here?" {
		t.Errorf("unexpected question %q", d.answerer.gotQuestion)
	}
	for _, want := range []string{"We revisit attention.", "A full summary", "**Key** points"} {
		if !strings.Contains(d.answerer.gotContext, want) {
			t.Errorf("expected context to contain %q", want)
		}
	}
}

func TestAskQuestion_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing", `{}`, "question is required"},
		{"too short", `{"question":"hi"}`, "question must be at least 3 characters"},
		{"too long", `{"question":"` + strings.Repeat("a", 501) + `"}`, "question must be 500 characters or less"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestHTTPServer(newTestDeps())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/2301.12345/ask", bytes.NewBufferString(tt.body))
			rr := serveHTTP(srv, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if resp["error"] != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, resp["error"])
			}
		})
	}
}

func TestAskQuestion_NoAnalysis(t *testing.T) {
	d := newTestDeps()
	p := samplePaper()
	d.analyzer.papers[p.ID] = p
	srv := newTestHTTPServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/papers/2301.12345/ask", bytes.NewBufferString(`{"question":"Why?!"}`))
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Tests: health
// ---------------------------------------------------------------------------

func TestApplicationHealth(t *testing.T) {
	srv := newTestHTTPServer(newTestDeps())

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp healthResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "UP" || resp.Application != "paper-analysis-test" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestHTTPServer(newTestDeps())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rr.Code)
		}
	}

	notReady := NewServer(Config{}, Deps{}, zerolog.Nop())
	rr := serveHTTP(notReady, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without collaborators, got %d", rr.Code)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{domain.NewNotFoundError("paper", "x"), http.StatusNotFound},
		{domain.NewValidationError("arxiv_id", "bad"), http.StatusBadRequest},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		writeDomainError(rr, tt.err)
		if rr.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, rr.Code)
		}
	}
}
