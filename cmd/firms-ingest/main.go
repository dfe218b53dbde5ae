// Command firms-ingest polls the FIRMS active-fire feed and records the time
// each detection first became visible locally.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/firms-ingest/internal/adapter/csvstore"
	"github.com/couchcryptid/firms-ingest/internal/adapter/firms"
	httpadapter "github.com/couchcryptid/firms-ingest/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/firms-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/firms-ingest/internal/config"
	"github.com/couchcryptid/firms-ingest/internal/observability"
	"github.com/couchcryptid/firms-ingest/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := firms.NewClient(cfg, logger)
	store := csvstore.New(cfg.DataDir, logger)

	// Kafka fan-out is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(fetcher, store, publisher, logger, metrics, pipeline.Options{
		Sources:  cfg.Sources,
		Interval: cfg.PollInterval,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the poll loop until a signal arrives or persistence fails.
	exitCode := runPoller(ctx, p, logger)
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
	if exitCode != 0 {
		cancel()
		stop()
		os.Exit(exitCode)
	}
}

type poller interface {
	Run(ctx context.Context) error
}

// runPoller blocks until the poll loop returns and maps its result to an exit
// code. Run also returns after cancellation, once the interrupted cycle has
// been persisted, so a save failure during shutdown still exits 1.
func runPoller(ctx context.Context, p poller, logger *slog.Logger) int {
	if err := p.Run(ctx); err != nil {
		logger.Error("poller error", "error", err)
		return 1
	}
	return 0
}
