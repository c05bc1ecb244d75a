package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skydrift/balloon-track/internal/adapter/alerts"
	"github.com/skydrift/balloon-track/internal/adapter/feed"
	"github.com/skydrift/balloon-track/internal/adapter/httpapi"
	kafkaadapter "github.com/skydrift/balloon-track/internal/adapter/kafka"
	"github.com/skydrift/balloon-track/internal/config"
	"github.com/skydrift/balloon-track/internal/observability"
	"github.com/skydrift/balloon-track/internal/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	feedClient := feed.NewClient(cfg, logger, metrics)
	alertClient := alerts.NewClient(cfg, logger, metrics)
	store := tracker.NewStore()
	merger := tracker.NewMerger(feedClient, logger)

	// The summary sink is feature-flagged on configured brokers.
	var publisher tracker.SummaryPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka summary sink enabled", "topic", cfg.KafkaSummaryTopic)
	} else {
		logger.Info("kafka summary sink disabled")
	}

	refresher := tracker.NewRefresher(cfg, merger, alertClient, store, publisher, logger, metrics)
	srv := httpapi.NewServer(cfg.HTTPAddr, store, refresher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
