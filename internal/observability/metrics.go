package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper analysis service.
// Metrics are organized by subsystem: jobs, pipeline stages, paper sources,
// text extraction, LLM operations, the result store and event publishing.
// All metrics are registered via promauto with the default registry.
type Metrics struct {
	// JobsSubmitted counts accepted submissions, including cache hits.
	JobsSubmitted prometheus.Counter

	// JobsCacheHits counts submissions answered from a fresh stored analysis.
	JobsCacheHits prometheus.Counter

	// JobsCompleted counts pipelines that reached COMPLETED.
	JobsCompleted prometheus.Counter

	// JobsFailed counts pipelines that reached FAILED, labeled by the stage
	// the job was in when it failed.
	JobsFailed *prometheus.CounterVec

	// PipelineDuration observes the end-to-end pipeline duration in seconds.
	PipelineDuration prometheus.Histogram

	// PipelinesRunning tracks pipelines currently holding a worker slot.
	PipelinesRunning prometheus.Gauge

	// StageTransitions counts stage transitions, labeled by target stage.
	StageTransitions *prometheus.CounterVec

	// SourceRequestsTotal counts metadata lookups, labeled by source and outcome.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestDuration observes metadata lookup duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper sources.
	SourceRateLimited *prometheus.CounterVec

	// TextExtractions counts full-text extractions, labeled by method
	// ("pdf", "html", "degraded").
	TextExtractions *prometheus.CounterVec

	// LLMRequestsTotal counts LLM requests, labeled by operation and provider.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM requests, labeled by operation and provider.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM request duration in seconds.
	LLMRequestDuration *prometheus.HistogramVec

	// BreakerState reports each circuit breaker's state
	// (0 closed, 1 open, 2 half-open), labeled by breaker name.
	BreakerState *prometheus.GaugeVec

	// StoreEvictions counts stale analyses evicted on read.
	StoreEvictions prometheus.Counter

	// EventsPublished counts job events published, labeled by event type and outcome.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Jobs
		JobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of analysis jobs submitted",
		}),
		JobsCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_cache_hits_total",
			Help:      "Total number of submissions served from a fresh analysis",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of analysis pipelines completed successfully",
		}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of analysis pipelines that failed, by stage",
		}, []string{"stage"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of analysis pipelines in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		PipelinesRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipelines_running",
			Help:      "Number of analysis pipelines currently running",
		}),
		StageTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Total number of job stage transitions, by target stage",
		}, []string{"stage"}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of metadata lookups by source and outcome",
		}, []string{"source", "outcome"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of metadata lookups in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limited responses from paper sources",
		}, []string{"source"}),

		// Text extraction
		TextExtractions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_extractions_total",
			Help:      "Total number of full-text extractions by method",
		}, []string{"method"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"operation", "provider"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"operation", "provider"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"operation", "provider"}),
		BreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"name"}),

		// Store and events
		StoreEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_evictions_total",
			Help:      "Total number of stale analyses evicted from the result store",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of job events published by type and outcome",
		}, []string{"event_type", "outcome"}),
	}
}

// RecordJobSubmitted records an accepted submission.
func (m *Metrics) RecordJobSubmitted(cacheHit bool) {
	m.JobsSubmitted.Inc()
	if cacheHit {
		m.JobsCacheHits.Inc()
	}
}

// RecordJobCompleted records a pipeline that completed.
func (m *Metrics) RecordJobCompleted(durationSeconds float64) {
	m.JobsCompleted.Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordJobFailed records a pipeline that failed while in stage.
func (m *Metrics) RecordJobFailed(stage string, durationSeconds float64) {
	m.JobsFailed.WithLabelValues(stage).Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordStageTransition records a job entering stage.
func (m *Metrics) RecordStageTransition(stage string) {
	m.StageTransitions.WithLabelValues(stage).Inc()
}

// RecordSourceRequest records a metadata lookup against source.
func (m *Metrics) RecordSourceRequest(source, outcome string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, outcome).Inc()
	m.SourceRequestDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordTextExtraction records how the full text of a paper was obtained.
func (m *Metrics) RecordTextExtraction(method string) {
	m.TextExtractions.WithLabelValues(method).Inc()
}

// RecordLLMRequest records a successful LLM request.
func (m *Metrics) RecordLLMRequest(operation, provider string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation, provider).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, provider).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, provider string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation, provider).Inc()
	m.LLMRequestsFailed.WithLabelValues(operation, provider).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, provider).Observe(durationSeconds)
}

// SetBreakerState records the current state of the named circuit breaker.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordStoreEviction records a stale analysis evicted on read.
func (m *Metrics) RecordStoreEviction() {
	m.StoreEvictions.Inc()
}

// RecordEventPublished records a publish attempt for a job event.
func (m *Metrics) RecordEventPublished(eventType string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}
