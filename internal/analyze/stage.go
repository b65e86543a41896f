package analyze

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"psychsessions/internal/artifact"
	"psychsessions/internal/event"
	"psychsessions/internal/storage"
)

// SessionSaver persists the final insights. *db.SessionRepository
// satisfies it.
type SessionSaver interface {
	SaveInsights(ctx context.Context, meta artifact.Metadata, in Insights) error
}

// Stage consumes audio.transcription.completed, analyzes the transcript
// (cache first), persists the insights, and produces analysis.completed.
type Stage struct {
	Store      storage.ObjectStore
	Analyzer   Analyzer
	Cache      Cache
	Repository SessionSaver
}

func (s *Stage) Name() string { return "transcript-analysis" }

// Handle runs the full analysis step. The envelope it returns references
// the transcript artifact: the stage's own output is the persisted
// insights row, not a new object.
func (s *Stage) Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	key, err := artifact.ParsePath(env.ObjectKey)
	if err != nil {
		return nil, err
	}
	meta, err := key.Meta()
	if err != nil {
		return nil, err
	}

	transcript, err := s.Store.Fetch(ctx, env.Bucket, env.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}

	analysis, err := s.analyze(ctx, env.SessionID, transcript)
	if err != nil {
		return nil, err
	}

	insights := DeriveInsights(analysis)
	if err := s.Repository.SaveInsights(ctx, meta, insights); err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", env.SessionID).
		Int("sentiment_scores", len(insights.SentimentScores)).
		Int("relationships", len(insights.Relationships)).
		Msg("Session insights persisted")

	next := event.Envelope{
		EventType:   event.AnalysisCompleted,
		SessionID:   env.SessionID,
		Bucket:      env.Bucket,
		ObjectKey:   env.ObjectKey,
		ContentType: env.ContentType,
		OccurredAt:  time.Now().UTC(),
	}
	return &next, nil
}

// analyze consults the result cache before invoking the model. Cache
// failures degrade to a miss: the cache is an optimization, and letting
// it fail the stage would turn a cache outage into DLQ poison.
func (s *Stage) analyze(ctx context.Context, sessionID string, transcript []byte) (Analysis, error) {
	key := CacheKey(transcript)

	if cached, err := s.Cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Cache lookup failed")
	} else if cached != nil {
		var a Analysis
		if err := json.Unmarshal(cached, &a); err == nil {
			log.Info().Str("session_id", sessionID).Msg("Analysis served from cache")
			return a, nil
		}
		log.Warn().Str("session_id", sessionID).Msg("Discarding undecodable cache entry")
	}

	a, err := s.Analyzer.Analyze(ctx, string(transcript))
	if err != nil {
		return Analysis{}, err
	}

	if encoded, err := json.Marshal(a); err == nil {
		if err := s.Cache.Set(ctx, key, encoded); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Cache populate failed")
		}
	}
	return a, nil
}
