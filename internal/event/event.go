// Package event defines the envelopes and routing keys exchanged between
// pipeline stages.
package event

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Routing keys for stage-completion events on the topic exchange.
const (
	VideoUploadCompleted        = "video.upload.completed"
	AudioExtractionCompleted    = "audio.extraction.completed"
	AudioTranscriptionCompleted = "audio.transcription.completed"
	AnalysisCompleted           = "analysis.completed"
)

// Dead-letter routing keys, one per consuming stage.
const (
	AudioExtractionFailed    = "audio.extraction.failed"
	AudioTranscriptionFailed = "audio.transcription.failed"
	AnalysisFailed           = "analysis.failed"
)

// Envelope is the payload carried by every pipeline event. ObjectKey
// addresses the artifact produced by the completing stage; the consumer
// of the next stage derives everything else it needs from that key.
type Envelope struct {
	EventType   string    `json:"event_type"`
	SessionID   string    `json:"session_id"`
	Bucket      string    `json:"bucket_name"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Encode serializes the envelope for publishing.
func (e Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return body, nil
}

// Decode parses an envelope from a message body. Missing identity fields
// are an error so that malformed messages get rejected and eventually
// dead-lettered instead of being processed with empty keys.
func Decode(body []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.EventType == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event_type")
	}
	if e.SessionID == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing session_id")
	}
	if e.ObjectKey == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing object_key")
	}
	return e, nil
}
