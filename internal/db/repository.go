package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"psychsessions/internal/analyze"
	"psychsessions/internal/artifact"
)

// ErrNotFound is returned when a session does not exist or has no
// insights yet. For the query API, a session whose pipeline failed
// permanently is indistinguishable from one that never existed.
var ErrNotFound = errors.New("session not found")

// SessionRepository handles all session reads and writes.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository wraps a store.
func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{db: store.DB}
}

// SaveInsights persists the analysis result for a session. Every write
// is an upsert, so redelivering the same event cannot create duplicate
// rows.
func (r *SessionRepository) SaveInsights(ctx context.Context, meta artifact.Metadata, in analyze.Insights) error {
	sessionID, err := uuid.Parse(meta.SessionID)
	if err != nil {
		return fmt.Errorf("save insights: invalid session id %q: %w", meta.SessionID, err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patient := Patient{FirstName: meta.FirstName, LastName: meta.LastName}
		if err := tx.Where("first_name = ? AND last_name = ?", meta.FirstName, meta.LastName).
			FirstOrCreate(&patient).Error; err != nil {
			return fmt.Errorf("get or create patient: %w", err)
		}

		session := Session{ID: sessionID, SessionDate: meta.Date, PatientID: patient.ID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"session_date", "patient_id"}),
		}).Create(&session).Error; err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}

		insights := SessionInsights{
			SessionID:       sessionID,
			PositiveTopics:  in.PositiveTopics,
			NegativeTopics:  in.NegativeTopics,
			SentimentScores: in.SentimentScores,
			Relationships:   RelationshipList(in.Relationships),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"positive_topics", "negative_topics", "sentiment_scores", "patient_relationships"}),
		}).Create(&insights).Error; err != nil {
			return fmt.Errorf("upsert insights: %w", err)
		}
		return nil
	})
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID        uuid.UUID `json:"session_id"`
	PatientFirstName string    `json:"patient_first_name"`
	PatientLastName  string    `json:"patient_last_name"`
	SessionDate      string    `json:"session_date"`
}

// InsightsPayload is the JSON shape of a session's insights.
type InsightsPayload struct {
	PositiveTopics  []string               `json:"positive_topics"`
	NegativeTopics  []string               `json:"negative_topics"`
	SentimentScores []float64              `json:"sentiment_scores"`
	Relationships   []analyze.Relationship `json:"patient_relationships"`
}

// SessionDetail is the full query-API view of one session.
type SessionDetail struct {
	SessionSummary
	Insights InsightsPayload `json:"insights"`
}

// ListSessions returns all sessions with patient info, newest first.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var sessions []Session
	if err := r.db.WithContext(ctx).
		Preload("Patient").
		Order("session_date DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, summarize(s))
	}
	return out, nil
}

// GetSession returns one session with its insights, or ErrNotFound when
// the session is absent or its analysis has not completed.
func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*SessionDetail, error) {
	var session Session
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Preload("Insights").
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Insights == nil {
		return nil, ErrNotFound
	}

	return &SessionDetail{
		SessionSummary: summarize(session),
		Insights: InsightsPayload{
			PositiveTopics:  session.Insights.PositiveTopics,
			NegativeTopics:  session.Insights.NegativeTopics,
			SentimentScores: session.Insights.SentimentScores,
			Relationships:   session.Insights.Relationships,
		},
	}, nil
}

func summarize(s Session) SessionSummary {
	return SessionSummary{
		SessionID:        s.ID,
		PatientFirstName: s.Patient.FirstName,
		PatientLastName:  s.Patient.LastName,
		SessionDate:      s.SessionDate.Format("2006-01-02"),
	}
}
