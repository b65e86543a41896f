// Package db persists sessions and their analyzed insights in Postgres.
package db

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"psychsessions/internal/analyze"
)

// Patient is a person with one or more recorded sessions.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string    `gorm:"size:255;not null;uniqueIndex:idx_patients_name,priority:1"`
	LastName  string    `gorm:"size:255;not null;uniqueIndex:idx_patients_name,priority:2"`

	Sessions []Session `gorm:"foreignKey:PatientID"`
}

func (Patient) TableName() string { return "patients" }

// BeforeCreate mints the patient ID when the caller did not.
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Session is one recorded therapy session. Its ID is minted at upload
// and shared with every artifact path and event envelope.
type Session struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionDate time.Time `gorm:"type:date;not null"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index"`

	Patient  Patient          `gorm:"foreignKey:PatientID"`
	Insights *SessionInsights `gorm:"foreignKey:SessionID"`
}

func (Session) TableName() string { return "sessions" }

// SessionInsights is the analysis stage's final output: written once per
// successful completion, replaced wholesale on reprocessing, never
// partially updated.
type SessionInsights struct {
	SessionID       uuid.UUID        `gorm:"type:uuid;primaryKey"`
	PositiveTopics  pq.StringArray   `gorm:"type:text[];not null"`
	NegativeTopics  pq.StringArray   `gorm:"type:text[];not null"`
	SentimentScores pq.Float64Array  `gorm:"type:float8[];not null"`
	Relationships   RelationshipList `gorm:"type:jsonb;not null;column:patient_relationships"`
}

func (SessionInsights) TableName() string { return "session_insights" }

// RelationshipList stores the relationship mentions as a jsonb column.
type RelationshipList []analyze.Relationship

// Value implements driver.Valuer.
func (l RelationshipList) Value() (driver.Value, error) {
	if l == nil {
		l = RelationshipList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *RelationshipList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = RelationshipList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("scan relationships: unsupported source %T", value)
	}
}
