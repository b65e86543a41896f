// Command session-upload serves the ingress API: it accepts session
// video uploads and starts the processing pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"psychsessions/internal/api"
	"psychsessions/internal/bus"
	"psychsessions/internal/config"
	"psychsessions/internal/storage"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewMinioStore(cfg.Minio.Endpoint, cfg.Minio.User, cfg.Minio.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object store")
	}
	if err := store.EnsureBucket(ctx, cfg.Minio.Bucket); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure bucket")
	}

	b, err := bus.Dial(ctx, cfg.Rabbit.URL())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to broker")
	}
	defer b.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewUploadService(store, b, cfg.Minio.Bucket),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("Upload service started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Upload service shut down")
}
