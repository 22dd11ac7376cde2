// Package main provides the entry point for the headless analysis worker.
// The worker consumes submission requests from Kafka, runs the analysis
// pipelines and announces finished jobs on the events topic. It serves no
// HTTP API beyond Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-analysis-service/internal/app"
	"github.com/helixir/paper-analysis-service/internal/config"
	"github.com/helixir/paper-analysis-service/internal/events"
	"github.com/helixir/paper-analysis-service/internal/jobs"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Kafka.Consumer.Enabled {
		return errors.New("worker requires kafka.consumer.enabled")
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("paper-analysis-service worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(app.MetricsNamespace)

	svc, err := app.New(ctx, cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}

	listener := events.NewListener(events.ListenerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Consumer.Topic,
		GroupID: cfg.Kafka.Consumer.GroupID,
	}, svc.Orchestrator, logger)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:        cfg.Server.MetricsAddress(),
			Handler:     metricsMux,
			ReadTimeout: cfg.Server.ReadTimeout,
		}
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	go jobs.RunPruner(ctx, svc.Jobs, cfg.Jobs.Retention, cfg.Jobs.PruneInterval, logger)

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Consumer.Topic).
		Str("group_id", cfg.Kafka.Consumer.GroupID).
		Int64("max_concurrent", cfg.Pipeline.MaxConcurrent).
		Msg("worker consuming submissions")

	runErr := listener.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logger.Info().Msg("worker stopped via signal")
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := listener.Close(); err != nil {
		logger.Error().Err(err).Msg("submission listener close error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}
	if err := svc.Orchestrator.WaitContext(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pipelines still running at shutdown")
	}
	if err := svc.Close(); err != nil {
		logger.Error().Err(err).Msg("component shutdown error")
	}

	logger.Info().Msg("worker shutdown complete")
	return runErr
}
