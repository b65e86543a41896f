package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psychsessions/internal/analyze"
	"psychsessions/internal/db"
)

type fakeSessionReader struct {
	sessions []db.SessionSummary
	details  map[uuid.UUID]*db.SessionDetail
	err      error
}

func (f *fakeSessionReader) ListSessions(ctx context.Context) ([]db.SessionSummary, error) {
	return f.sessions, f.err
}

func (f *fakeSessionReader) GetSession(ctx context.Context, id uuid.UUID) (*db.SessionDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	detail, ok := f.details[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return detail, nil
}

func TestListSessions(t *testing.T) {
	id := uuid.New()
	svc := NewQueryService(&fakeSessionReader{
		sessions: []db.SessionSummary{
			{SessionID: id, PatientFirstName: "jane", PatientLastName: "doe", SessionDate: "2025-01-15"},
		},
	})

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []db.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].SessionID)
	assert.Equal(t, "2025-01-15", got[0].SessionDate)
}

func TestListSessionsEmpty(t *testing.T) {
	svc := NewQueryService(&fakeSessionReader{sessions: []db.SessionSummary{}})

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListSessionsFailure(t *testing.T) {
	svc := NewQueryService(&fakeSessionReader{err: errors.New("database down")})

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetSession(t *testing.T) {
	id := uuid.New()
	detail := &db.SessionDetail{
		SessionSummary: db.SessionSummary{
			SessionID:        id,
			PatientFirstName: "jane",
			PatientLastName:  "doe",
			SessionDate:      "2025-01-15",
		},
		Insights: db.InsightsPayload{
			PositiveTopics:  []string{"family"},
			NegativeTopics:  []string{"work"},
			SentimentScores: []float64{0.7, -0.6},
			Relationships: []analyze.Relationship{
				{Name: "Sam", Relationship: "partner", SentimentScore: 0.5, Mentions: 3},
			},
		},
	}
	svc := NewQueryService(&fakeSessionReader{details: map[uuid.UUID]*db.SessionDetail{id: detail}})

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got db.SessionDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *detail, got)
}

func TestGetSessionNotFound(t *testing.T) {
	svc := NewQueryService(&fakeSessionReader{details: map[uuid.UUID]*db.SessionDetail{}})

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSessionBadID(t *testing.T) {
	svc := NewQueryService(&fakeSessionReader{})

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
