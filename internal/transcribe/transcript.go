package transcribe

import (
	"fmt"
	"strings"
)

// FormatTranscript renders speaker-labeled utterances as the
// line-oriented text the analysis stage consumes. Zero utterances yield
// an empty transcript, not an error.
func FormatTranscript(utterances []Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		lines = append(lines, fmt.Sprintf("Speaker %s: %s", u.Speaker, u.Text))
	}
	return strings.Join(lines, "\n")
}
