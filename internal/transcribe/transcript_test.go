package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTranscript(t *testing.T) {
	utterances := []Utterance{
		{Speaker: "A", Text: "How have you been feeling this week?"},
		{Speaker: "B", Text: "Better than last time."},
		{Speaker: "A", Text: "Tell me more."},
	}

	got := FormatTranscript(utterances)
	want := "Speaker A: How have you been feeling this week?\n" +
		"Speaker B: Better than last time.\n" +
		"Speaker A: Tell me more."
	assert.Equal(t, want, got)
}

func TestFormatTranscriptEmpty(t *testing.T) {
	assert.Equal(t, "", FormatTranscript(nil))
	assert.Equal(t, "", FormatTranscript([]Utterance{}))
}
