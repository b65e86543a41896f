// Package extract implements the audio-extraction stage: session video
// in, mono 16kHz WAV out, via ffmpeg.
package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"psychsessions/internal/artifact"
	"psychsessions/internal/event"
	"psychsessions/internal/storage"
)

// Stage consumes video.upload.completed and produces
// audio.extraction.completed.
type Stage struct {
	Store        storage.ObjectStore
	FFmpegBinary string
}

func (s *Stage) Name() string { return "audio-extraction" }

// Handle fetches the video artifact, extracts its audio track, stores the
// audio artifact, and returns the next-stage envelope.
func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	key, err := artifact.ParsePath(env.ObjectKey)
	if err != nil {
		return nil, err
	}

	video, err := s.Store.Fetch(ctx, env.Bucket, env.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("fetch video: %w", err)
	}

	audio, err := s.extract(ctx, video, key.Filename)
	if err != nil {
		return nil, err
	}

	out := key.Next(artifact.StageAudio, "wav")
	if err := s.Store.Store(ctx, env.Bucket, out.Path(), audio, "audio/wav"); err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}

	next := event.Envelope{
		EventType:   event.AudioExtractionCompleted,
		SessionID:   env.SessionID,
		Bucket:      env.Bucket,
		ObjectKey:   out.Path(),
		ContentType: "audio/wav",
		OccurredAt:  time.Now().UTC(),
	}
	return &next, nil
}

// extract round-trips the video through a temp directory and runs ffmpeg.
// The output is mono 16kHz PCM, which is what the transcription provider
// expects.
func (s *Stage) extract(ctx context.Context, video []byte, filename string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "extract-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, filename)
	if err := os.WriteFile(src, video, 0o600); err != nil {
		return nil, fmt.Errorf("write video: %w", err)
	}
	dest := strings.TrimSuffix(src, filepath.Ext(src)) + ".wav"

	bin := s.FFmpegBinary
	if bin == "" {
		bin = "ffmpeg"
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}

	audio, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}
