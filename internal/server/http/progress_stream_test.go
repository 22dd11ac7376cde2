package httpserver

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// parseSSEEvents reads every "data:" line of an SSE body.
func parseSSEEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev sseEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("invalid SSE payload %q: %v", data, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestStreamProgress_TerminalJob(t *testing.T) {
	d := newTestDeps()
	d.analyzer.jobFn = func(token string) (domain.Job, bool) {
		return domain.Job{Token: token, PaperID: domain.MustParsePaperID("2301.12345"), Stage: domain.StageCompleted}, true
	}
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/jobs/tok-1/stream", nil))

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected Content-Type text/event-stream, got %q", ct)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected Cache-Control no-cache, got %q", cc)
	}

	events := parseSSEEvents(t, rr.Body.String())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != sseEventCompleted || events[0].ProgressPercentage != 100 {
		t.Errorf("unexpected event %+v", events[0])
	}
	if !strings.Contains(rr.Body.String(), "event: completed\n") {
		t.Errorf("expected named SSE event, got %q", rr.Body.String())
	}
}

func TestStreamProgress_UnknownJob(t *testing.T) {
	srv := newTestHTTPServer(newTestDeps())

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/jobs/missing/stream", nil))

	events := parseSSEEvents(t, rr.Body.String())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != sseEventFailed || events[0].Status != "FAILED" {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestStreamProgress_FollowsStageChanges(t *testing.T) {
	stages := []domain.Stage{
		domain.StagePending,
		domain.StagePending,
		domain.StageFetchingMetadata,
		domain.StageFetchingMetadata,
		domain.StageExtractingText,
		domain.StageFailed,
	}
	calls := 0

	d := newTestDeps()
	d.analyzer.jobFn = func(token string) (domain.Job, bool) {
		stage := stages[min(calls, len(stages)-1)]
		calls++
		job := domain.Job{Token: token, PaperID: domain.MustParsePaperID("2301.12345"), Stage: stage}
		if stage == domain.StageFailed {
			job.Error = "Paper not found on arXiv"
		}
		return job, true
	}
	srv := newTestHTTPServer(d)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/papers/jobs/tok-2/stream", nil))

	events := parseSSEEvents(t, rr.Body.String())
	var got []string
	for _, ev := range events {
		got = append(got, ev.EventType+":"+ev.Status)
	}
	want := []string{
		"stream_started:PENDING",
		"stage_changed:FETCHING_METADATA",
		"stage_changed:EXTRACTING_TEXT",
		"failed:FAILED",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if last := events[len(events)-1]; last.Error != "Paper not found on arXiv" {
		t.Errorf("expected failure reason, got %q", last.Error)
	}
}
