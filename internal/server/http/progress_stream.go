package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

const (
	// defaultStreamPollInterval is how often the job registry is polled.
	defaultStreamPollInterval = 500 * time.Millisecond
	// defaultStreamMaxDuration is the maximum time a stream may remain open.
	defaultStreamMaxDuration = 30 * time.Minute
)

// SSE event types.
const (
	sseEventStarted   = "stream_started"
	sseEventStage     = "stage_changed"
	sseEventCompleted = "completed"
	sseEventFailed    = "failed"
	sseEventTimeout   = "timeout"
)

// sseEvent represents an event sent via SSE.
type sseEvent struct {
	EventType          string    `json:"eventType"`
	JobID              string    `json:"jobId"`
	ArxivID            string    `json:"arxivId,omitempty"`
	Status             string    `json:"status"`
	Description        string    `json:"description"`
	ProgressPercentage int       `json:"progressPercentage"`
	Error              string    `json:"error,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// streamProgress handles GET /papers/jobs/{jobID}/stream (SSE).
// The stream emits the current stage, then one event per stage change, and
// closes after the terminal stage.
func (s *Server) streamProgress(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "jobID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	job, found := s.deps.Analyzer.Job(token)
	if !found {
		sendSSEEvent(w, flusher, s.jobEvent(sseEventFailed, token, job, false))
		return
	}
	if job.Stage.IsTerminal() {
		sendSSEEvent(w, flusher, s.jobEvent(terminalEventType(job.Stage), token, job, true))
		return
	}

	sendSSEEvent(w, flusher, s.jobEvent(sseEventStarted, token, job, true))
	last := job.Stage

	ctx := r.Context()
	deadline := time.NewTimer(s.maxStream)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-deadline.C:
			sendSSEEvent(w, flusher, s.jobEvent(sseEventTimeout, token, job, true))
			return

		case <-ticker.C:
			current, ok := s.deps.Analyzer.Job(token)
			if !ok {
				// Pruned while streaming.
				sendSSEEvent(w, flusher, s.jobEvent(sseEventFailed, token, current, false))
				return
			}
			job = current
			if current.Stage == last {
				continue
			}
			last = current.Stage

			if current.Stage.IsTerminal() {
				sendSSEEvent(w, flusher, s.jobEvent(terminalEventType(current.Stage), token, current, true))
				return
			}
			sendSSEEvent(w, flusher, s.jobEvent(sseEventStage, token, current, true))
		}
	}
}

func (s *Server) jobEvent(eventType, token string, job domain.Job, found bool) sseEvent {
	status := jobToStatusResponse(token, job, found)
	return sseEvent{
		EventType:          eventType,
		JobID:              token,
		ArxivID:            status.ArxivID,
		Status:             status.Status,
		Description:        status.Description,
		ProgressPercentage: status.ProgressPercentage,
		Error:              status.Error,
		Timestamp:          s.now(),
	}
}

func terminalEventType(stage domain.Stage) string {
	if stage == domain.StageCompleted {
		return sseEventCompleted
	}
	return sseEventFailed
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
	flusher.Flush()
}
