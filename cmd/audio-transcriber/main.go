// Command audio-transcriber consumes audio.extraction.completed events
// and produces speaker-labeled transcripts.
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

	"psychsessions/internal/bus"
	"psychsessions/internal/config"
	"psychsessions/internal/storage"
	"psychsessions/internal/transcribe"
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
	if err := errors.Join(cfg.Minio.Validate(), cfg.Rabbit.Validate(), cfg.AssemblyAI.Validate()); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
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

	queue := bus.TranscriptionQueue(cfg.Worker.MaxDeliveryCount)
	if err := b.DeclareTopology(queue); err != nil {
		log.Fatal().Err(err).Msg("Failed to declare topology")
	}
	deliveries, err := b.Consume(queue.Name, cfg.Worker.Concurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start consuming")
	}

	w := &worker.Worker{
		Stage: &transcribe.Stage{
			Store:       store,
			Transcriber: transcribe.NewClient(cfg.AssemblyAI.APIKey),
		},
		Publisher:   b,
		Timeout:     cfg.Worker.CallTimeout,
		Concurrency: cfg.Worker.Concurrency,
	}
	log.Info().Str("queue", queue.Name).Msg("Audio transcriber started")
	if err := w.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Worker stopped")
	}
	log.Info().Msg("Audio transcriber shut down")
}
