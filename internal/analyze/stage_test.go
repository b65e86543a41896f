package analyze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psychsessions/internal/artifact"
	"psychsessions/internal/event"
	"psychsessions/internal/storage"
)

type countingAnalyzer struct {
	calls  int
	result Analysis
	err    error
}

func (a *countingAnalyzer) Analyze(ctx context.Context, transcript string) (Analysis, error) {
	a.calls++
	return a.result, a.err
}

type mapCache struct {
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[key], nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	return nil
}

type recordingSaver struct {
	saved []Insights
	metas []artifact.Metadata
	err   error
}

func (s *recordingSaver) SaveInsights(ctx context.Context, meta artifact.Metadata, in Insights) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, in)
	s.metas = append(s.metas, meta)
	return nil
}

func transcriptEnvelope(sessionID string) event.Envelope {
	return event.Envelope{
		EventType:  event.AudioTranscriptionCompleted,
		SessionID:  sessionID,
		Bucket:     "sessions",
		ObjectKey:  "2025/01/15/" + sessionID + "/transcription/jane-doe-2025-01-15.txt",
		OccurredAt: time.Now().UTC(),
	}
}

func storeTranscript(t *testing.T, store *storage.MemoryStore, env event.Envelope, content string) {
	t.Helper()
	require.NoError(t, store.Store(context.Background(), env.Bucket, env.ObjectKey, []byte(content), "text/plain"))
}

func TestCacheKeyIsContentAddressed(t *testing.T) {
	a := CacheKey([]byte("Speaker A: Hello."))
	b := CacheKey([]byte("Speaker A: Hello."))
	c := CacheKey([]byte("Speaker A: Goodbye."))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "analysis:")
}

func TestHandlePersistsAndPublishes(t *testing.T) {
	store := storage.NewMemoryStore()
	env := transcriptEnvelope("s1")
	storeTranscript(t, store, env, "Speaker A: Hello.")

	analyzer := &countingAnalyzer{result: Analysis{
		Utterances: []Utterance{{Role: RolePatient, Topics: []string{"family"}, SentimentScore: 0.7}},
	}}
	saver := &recordingSaver{}
	stage := &Stage{Store: store, Analyzer: analyzer, Cache: newMapCache(), Repository: saver}

	next, err := stage.Handle(context.Background(), env)
	require.NoError(t, err)

	require.Len(t, saver.saved, 1)
	assert.Equal(t, []string{"family"}, saver.saved[0].PositiveTopics)
	assert.Equal(t, "s1", saver.metas[0].SessionID)
	assert.Equal(t, "jane", saver.metas[0].FirstName)
	assert.Equal(t, "doe", saver.metas[0].LastName)

	assert.Equal(t, event.AnalysisCompleted, next.EventType)
	assert.Equal(t, env.ObjectKey, next.ObjectKey, "terminal event references the transcript artifact")
}

func TestHandleSharesAnalysisAcrossIdenticalTranscripts(t *testing.T) {
	store := storage.NewMemoryStore()
	first := transcriptEnvelope("s1")
	second := transcriptEnvelope("s2")
	storeTranscript(t, store, first, "Speaker A: Hello.")
	storeTranscript(t, store, second, "Speaker A: Hello.")

	analyzer := &countingAnalyzer{result: Analysis{
		Utterances: []Utterance{{Role: RolePatient, Topics: []string{"family"}, SentimentScore: 0.7}},
	}}
	saver := &recordingSaver{}
	stage := &Stage{Store: store, Analyzer: analyzer, Cache: newMapCache(), Repository: saver}

	_, err := stage.Handle(context.Background(), first)
	require.NoError(t, err)
	_, err = stage.Handle(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls, "identical transcript content shares one analysis")
	require.Len(t, saver.saved, 2)
	assert.Equal(t, saver.saved[0], saver.saved[1])
}

func TestHandleCacheFailureDegradesToMiss(t *testing.T) {
	store := storage.NewMemoryStore()
	env := transcriptEnvelope("s1")
	storeTranscript(t, store, env, "Speaker A: Hello.")

	cache := newMapCache()
	cache.getErr = errors.New("cache down")
	cache.setErr = errors.New("cache down")

	analyzer := &countingAnalyzer{result: Analysis{}}
	stage := &Stage{Store: store, Analyzer: analyzer, Cache: cache, Repository: &recordingSaver{}}

	_, err := stage.Handle(context.Background(), env)
	require.NoError(t, err, "a cache outage must not fail the stage")
	assert.Equal(t, 1, analyzer.calls)
}

func TestHandleAnalyzerFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	env := transcriptEnvelope("s1")
	storeTranscript(t, store, env, "Speaker A: Hello.")

	stage := &Stage{
		Store:      store,
		Analyzer:   &countingAnalyzer{err: errors.New("quota exhausted")},
		Cache:      newMapCache(),
		Repository: &recordingSaver{},
	}

	_, err := stage.Handle(context.Background(), env)
	assert.Error(t, err)
}

func TestHandleSaveFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	env := transcriptEnvelope("s1")
	storeTranscript(t, store, env, "Speaker A: Hello.")

	stage := &Stage{
		Store:      store,
		Analyzer:   &countingAnalyzer{},
		Cache:      newMapCache(),
		Repository: &recordingSaver{err: errors.New("database down")},
	}

	_, err := stage.Handle(context.Background(), env)
	assert.Error(t, err)
}

func TestHandleMissingTranscript(t *testing.T) {
	stage := &Stage{
		Store:      storage.NewMemoryStore(),
		Analyzer:   &countingAnalyzer{},
		Cache:      newMapCache(),
		Repository: &recordingSaver{},
	}

	_, err := stage.Handle(context.Background(), transcriptEnvelope("s1"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
