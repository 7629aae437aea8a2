package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/riverwatch/flood-risk-service/internal/adapter/http"
	kafkaadapter "github.com/riverwatch/flood-risk-service/internal/adapter/kafka"
	"github.com/riverwatch/flood-risk-service/internal/adapter/noaa"
	"github.com/riverwatch/flood-risk-service/internal/adapter/openmeteo"
	"github.com/riverwatch/flood-risk-service/internal/adapter/usgs"
	"github.com/riverwatch/flood-risk-service/internal/config"
	"github.com/riverwatch/flood-risk-service/internal/observability"
	"github.com/riverwatch/flood-risk-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	gauges := usgs.NewClient(cfg.USGSTimeout, logger)
	catalog := usgs.NewCachedCatalog(gauges, cfg.SiteCacheSize)
	catalog.OnCacheEvent(func(result string) {
		metrics.SiteCache.WithLabelValues(result).Inc()
	})

	alerts := noaa.NewClient(cfg.NOAAArea, cfg.NOAATimeout, logger)
	weather := openmeteo.NewClient(cfg.OpenMeteoTimeout, logger)

	// Kafka publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(cfg, gauges, catalog, alerts, weather, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, cfg.ForecastHorizonHours, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the assessment pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
