// Command audio-extractor consumes video.upload.completed events and
// extracts the session audio track.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"psychsessions/internal/bus"
	"psychsessions/internal/config"
	"psychsessions/internal/extract"
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
	if err := errors.Join(cfg.Minio.Validate(), cfg.Rabbit.Validate()); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if _, err := exec.LookPath(cfg.FFmpegBinary); err != nil {
		log.Fatal().Err(err).Str("binary", cfg.FFmpegBinary).Msg("ffmpeg not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.User, cfg.Minio.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object store")
	}

	b, err := bus.Dial(ctx, cfg.Rabbit.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to broker")
	}
	defer b.Close()

	queue := bus.ExtractionQueue(cfg.Worker.MaxDeliveryCount)
	if err := b.DeclareTopology(queue); err != nil {
		log.Fatal().Err(err).Msg("Failed to declare topology")
	}
	deliveries, err := b.Consume(queue.Name, cfg.Worker.Concurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start consuming")
	}

	w := &worker.Worker{
		Stage:       &extract.Stage{Store: store, FFmpegBinary: cfg.FFmpegBinary},
		Publisher:   b,
		Timeout:     cfg.Worker.CallTimeout,
		Concurrency: cfg.Worker.Concurrency,
	}
	log.Info().Str("queue", queue.Name).Msg("Audio extractor started")
	if err := w.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Worker stopped")
	}
	log.Info().Msg("Audio extractor shut down")
}
