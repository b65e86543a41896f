// Package analyze implements the transcript-analysis stage: language
// model analysis behind a content-addressed result cache, insight
// derivation, and persistence of the final structured insights.
package analyze

// Speaker roles the model may assign.
const (
	RoleTherapist = "therapist"
	RolePatient   = "patient"
)

// SpeakerRoles maps the transcript's speaker labels to their roles.
type SpeakerRoles struct {
	SpeakerA string `json:"speaker_a"`
	SpeakerB string `json:"speaker_b"`
}

// Utterance is one transcript segment annotated by the model.
// SentimentScore is in [-1, 1].
type Utterance struct {
	ID             int      `json:"id"`
	Speaker        string   `json:"speaker"`
	Role           string   `json:"role"`
	Text           string   `json:"text"`
	Topics         []string `json:"topic"`
	Emotions       []string `json:"emotion"`
	SentimentScore float64  `json:"sentiment_score"`
}

// Relationship is a person the patient mentioned during the session.
type Relationship struct {
	Name           string  `json:"name"`
	Relationship   string  `json:"relationship"`
	SentimentScore float64 `json:"sentiment_score"`
	Mentions       int     `json:"mentions"`
}

// Analysis is the structured result of the external language-model call.
type Analysis struct {
	SpeakerRoles   *SpeakerRoles  `json:"speaker_roles,omitempty"`
	Utterances     []Utterance    `json:"utterances,omitempty"`
	Relationships  []Relationship `json:"relationships,omitempty"`
	SentimentScore float64        `json:"sentiment_score"`
}

// Insights is the persisted distillation of an Analysis.
type Insights struct {
	PositiveTopics  []string
	NegativeTopics  []string
	SentimentScores []float64
	Relationships   []Relationship
}
