// Command transcript-analyzer consumes audio.transcription.completed
// events, analyzes transcripts, and persists session insights.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"psychsessions/internal/analyze"
	"psychsessions/internal/bus"
	"psychsessions/internal/config"
	"psychsessions/internal/db"
	"psychsessions/internal/storage"
	"psychsessions/internal/worker"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	if err := errors.Join(
		cfg.Minio.Validate(),
		cfg.Rabbit.Validate(),
		cfg.Postgres.Validate(),
		cfg.Gemini.Validate(),
	); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.User, cfg.Minio.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object store")
	}

	sessions, err := db.NewStore(db.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer sessions.Close()

	cache := analyze.NewRedisCache(cfg.Redis.Addr, cfg.Redis.CacheTTL)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to cache")
	}

	analyzer, err := analyze.NewGeminiAnalyzer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	b, err := bus.Dial(ctx, cfg.Rabbit.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to broker")
	}
	defer b.Close()

	queue := bus.AnalysisQueue(cfg.Worker.MaxDeliveryCount)
	if err := b.DeclareTopology(queue); err != nil {
		log.Fatal().Err(err).Msg("Failed to declare topology")
	}
	deliveries, err := b.Consume(queue.Name, cfg.Worker.Concurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start consuming")
	}

	w := &worker.Worker{
		Stage: &analyze.Stage{
			Store:      store,
			Analyzer:   analyzer,
			Cache:      cache,
			Repository: db.NewSessionRepository(sessions),
		},
		Publisher:   b,
		Timeout:     cfg.Worker.CallTimeout,
		Concurrency: cfg.Worker.Concurrency,
	}
	log.Info().Str("queue", queue.Name).Msg("Transcript analyzer started")
	if err := w.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Worker stopped")
	}
	log.Info().Msg("Transcript analyzer shut down")
}
