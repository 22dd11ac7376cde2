// Package main provides the entry point for the paper analysis HTTP server.
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
	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/app"
	"github.com/helixir/paper-analysis-service/internal/config"
	"github.com/helixir/paper-analysis-service/internal/events"
	"github.com/helixir/paper-analysis-service/internal/jobs"
	"github.com/helixir/paper-analysis-service/internal/observability"
	httpserver "github.com/helixir/paper-analysis-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-analysis-service server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(app.MetricsNamespace)

	svc, err := app.New(ctx, cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Analyzer: svc.Orchestrator,
		Text:     svc.Text,
		Metadata: svc.Metadata,
		Answerer: svc.Engine,
		Cache:    svc.Store,
		Renderer: svc.Renderer,
		Breakers: svc.Breakers,
	}, logger)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:        cfg.Server.MetricsAddress(),
			Handler:     metricsMux,
			ReadTimeout: cfg.Server.ReadTimeout,
		}
	}

	var listener *events.Listener
	if cfg.Kafka.Consumer.Enabled {
		listener = events.NewListener(events.ListenerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Consumer.Topic,
			GroupID: cfg.Kafka.Consumer.GroupID,
		}, svc.Orchestrator, logger)
	}

	errCh := make(chan error, 3)

	go jobs.RunPruner(ctx, svc.Jobs, cfg.Jobs.Retention, cfg.Jobs.PruneInterval, logger)

	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	if listener != nil {
		go func() {
			logger.Info().
				Str("topic", cfg.Kafka.Consumer.Topic).
				Str("group_id", cfg.Kafka.Consumer.GroupID).
				Msg("submission listener starting")
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("submission listener error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-analysis-service is ready")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server error")
	}

	logger.Info().Msg("shutting down paper-analysis-service")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	if listener != nil {
		if err := listener.Close(); err != nil {
			logger.Error().Err(err).Msg("submission listener close error")
		}
	}

	if err := svc.Orchestrator.WaitContext(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pipelines still running at shutdown")
	}

	if err := svc.Close(); err != nil {
		logger.Error().Err(err).Msg("component shutdown error")
	}

	logger.Info().Msg("paper-analysis-service shutdown complete")
	return runErr
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
}
