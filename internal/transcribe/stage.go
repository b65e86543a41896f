package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"psychsessions/internal/artifact"
	"psychsessions/internal/event"
	"psychsessions/internal/storage"
)

// Transcriber is the narrow external capability the stage invokes.
// *Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) ([]Utterance, error)
}

// Stage consumes audio.extraction.completed and produces
// audio.transcription.completed.
type Stage struct {
	Store       storage.ObjectStore
	Transcriber Transcriber
}

func (s *Stage) Name() string { return "audio-transcription" }

// Handle fetches the audio artifact, transcribes it, stores the formatted
// transcript, and returns the next-stage envelope.
func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	key, err := artifact.ParsePath(env.ObjectKey)
	if err != nil {
		return nil, err
	}

	audio, err := s.Store.Fetch(ctx, env.Bucket, env.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}

	utterances, err := s.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", env.SessionID).
		Int("utterances", len(utterances)).
		Msg("Audio transcribed")

	transcript := FormatTranscript(utterances)

	out := key.Next(artifact.StageTranscription, "txt")
	if err := s.Store.Store(ctx, env.Bucket, out.Path(), []byte(transcript), "text/plain"); err != nil {
		return nil, fmt.Errorf("store transcript: %w", err)
	}

	next := event.Envelope{
		EventType:   event.AudioTranscriptionCompleted,
		SessionID:   env.SessionID,
		Bucket:      env.Bucket,
		ObjectKey:   out.Path(),
		ContentType: "text/plain",
		OccurredAt:  time.Now().UTC(),
	}
	return &next, nil
}
