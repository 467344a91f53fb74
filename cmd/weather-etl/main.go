// Command weather-etl fetches the current weather for one city, loads it
// next to the city reference table and publishes the joined export.
//
// With -once it performs a single run and exits non-zero on failure, for use
// under an external scheduler. Otherwise it runs daily at SCHEDULE_AT and
// serves /healthz, /readyz, /metrics, GET /runs/last and POST /runs.
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

	"github.com/couchcryptid/city-weather-etl/internal/adapter/filestore"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/city-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/openweather"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/s3store"
	"github.com/couchcryptid/city-weather-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/city-weather-etl/internal/config"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
	"github.com/couchcryptid/city-weather-etl/internal/pipeline"
	"github.com/couchcryptid/city-weather-etl/internal/scheduler"
)

type objectStore interface {
	pipeline.ObjectWriter
	pipeline.ObjectReader
}

func main() {
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	os.Exit(run(*once))
}

func run(once bool) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer store.Close()

	checks := httpadapter.Checks{store}

	var objects objectStore
	switch cfg.ObjectStore {
	case "s3":
		bucket, err := s3store.New(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			logger.Error("failed to create s3 client", "error", err)
			return 1
		}
		objects = bucket
		checks = append(checks, bucket)
		logger.Info("object store: s3", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
	default:
		objects = filestore.NewOS(cfg.LocalObjectDir)
		logger.Info("object store: filesystem", "dir", cfg.LocalObjectDir)
	}
	local := filestore.NewOS("")

	client := openweather.NewClient(cfg.OpenWeatherURL, cfg.City, cfg.OpenWeatherAPIKey, cfg.HTTPTimeout, metrics, logger)

	var lookup pipeline.LookupRefresher
	if cfg.LookupImportMode == "aws_s3" {
		lookup = pipeline.NewS3ImportLookup(store, cfg.S3Bucket, cfg.LookupSourceKey, cfg.S3Region)
	} else {
		lookup = pipeline.NewCSVLookup(objects, cfg.LookupSourceKey, store)
	}

	publisher := pipeline.NewPublisher(store, pipeline.PublisherConfig{
		Latest:         local,
		LatestPath:     cfg.LatestPath,
		Snapshots:      objects,
		SnapshotPrefix: cfg.SnapshotPrefix,
	}, nil, logger, metrics)

	stages := pipeline.Stages{
		Gate:         client,
		Fetcher:      client,
		Transformer:  pipeline.NewTransformer(logger),
		Observations: store,
		Lookup:       lookup,
		Publisher:    publisher,
	}
	if cfg.StagingPath != "" {
		stages.Staging = local
		stages.StagingKey = cfg.StagingPath
	}
	if len(cfg.KafkaBrokers) > 0 {
		feed := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := feed.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		stages.Feed = feed
		logger.Info("observation feed enabled", "topic", cfg.KafkaObservationTopic)
	}

	p := pipeline.New(stages, pipeline.Options{
		PokeInterval:     cfg.ReadinessPokeInterval,
		ReadinessTimeout: cfg.ReadinessTimeout,
	}, logger, metrics)

	if once {
		if _, err := p.Run(ctx); err != nil {
			return 1
		}
		return 0
	}

	sched := scheduler.New(p, cfg.ScheduleAt, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, append(checks, p), p, sched, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop()

	logger.Info("shutdown complete")
	return 0
}
