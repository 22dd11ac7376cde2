// Package observability provides logging, metrics and context helpers for
// the paper analysis service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithJobContext(logger, job.Token, job.PaperID.String())
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_analysis")
//	metrics.RecordJobSubmitted(false)
//
// Components accept a nil *Metrics and skip recording.
//
// # Standard Fields
//
//   - job_id: analysis job token
//   - arxiv_id: paper identifier
//   - stage: pipeline stage
//   - source: metadata source (arxiv, semantic_scholar)
//   - provider: LLM provider
//   - request_id, correlation_id: HTTP request identifiers
package observability
