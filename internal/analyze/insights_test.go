package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveInsights(t *testing.T) {
	a := Analysis{
		Utterances: []Utterance{
			{Role: RoleTherapist, Topics: []string{"greeting"}, SentimentScore: 0.4},
			{Role: RolePatient, Topics: []string{"work", "stress"}, SentimentScore: -0.6},
			{Role: RolePatient, Topics: []string{"family"}, SentimentScore: 0.7},
			{Role: RolePatient, Topics: []string{"weather"}, SentimentScore: 0},
		},
		Relationships: []Relationship{
			{Name: "Sam", Relationship: "partner", SentimentScore: 0.5, Mentions: 3},
		},
	}

	in := DeriveInsights(a)

	assert.Equal(t, []string{"family"}, in.PositiveTopics)
	assert.Equal(t, []string{"work", "stress"}, in.NegativeTopics)
	assert.Equal(t, []float64{0.4, -0.6, 0.7, 0}, in.SentimentScores)
	assert.Equal(t, a.Relationships, in.Relationships)
}

func TestDeriveInsightsIgnoresTherapistTopics(t *testing.T) {
	a := Analysis{
		Utterances: []Utterance{
			{Role: RoleTherapist, Topics: []string{"homework"}, SentimentScore: 0.9},
			{Role: RoleTherapist, Topics: []string{"scheduling"}, SentimentScore: -0.9},
		},
	}

	in := DeriveInsights(a)

	assert.Empty(t, in.PositiveTopics)
	assert.Empty(t, in.NegativeTopics)
	assert.Equal(t, []float64{0.9, -0.9}, in.SentimentScores)
}

func TestDeriveInsightsEmptyAnalysis(t *testing.T) {
	in := DeriveInsights(Analysis{})

	assert.NotNil(t, in.PositiveTopics)
	assert.NotNil(t, in.NegativeTopics)
	assert.NotNil(t, in.SentimentScores)
	assert.NotNil(t, in.Relationships)
	assert.Empty(t, in.SentimentScores)
}
