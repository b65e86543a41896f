package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psychsessions/internal/analyze"
)

func TestRelationshipListValueScan(t *testing.T) {
	original := RelationshipList{
		{Name: "Sam", Relationship: "partner", SentimentScore: 0.5, Mentions: 3},
		{Name: "Alex", Relationship: "sibling", SentimentScore: -0.2, Mentions: 1},
	}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned RelationshipList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)
}

func TestRelationshipListValueNil(t *testing.T) {
	var l RelationshipList

	value, err := l.Value()
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(value.([]byte)))
}

func TestRelationshipListScan(t *testing.T) {
	var l RelationshipList
	require.NoError(t, l.Scan([]byte(`[{"name":"Sam","relationship":"partner","sentiment_score":0.5,"mentions":3}]`)))
	require.Len(t, l, 1)
	assert.Equal(t, analyze.Relationship{Name: "Sam", Relationship: "partner", SentimentScore: 0.5, Mentions: 3}, l[0])

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
}
