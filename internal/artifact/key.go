// Package artifact implements the deterministic storage addressing scheme
// shared by every pipeline stage.
//
// Object names have the form
//
//	{year}/{month}/{day}/{session_id}/{stage}/{first}-{last}-{date}.{ext}
//
// with stage one of video, audio, or transcription. Any stage can compute
// the location of another stage's output from the session identifier and
// date alone; no metadata service is consulted.
package artifact

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// Stage identifies which pipeline stage produced an artifact.
type Stage string

const (
	StageVideo         Stage = "video"
	StageAudio         Stage = "audio"
	StageTranscription Stage = "transcription"
)

func validStage(s Stage) bool {
	switch s {
	case StageVideo, StageAudio, StageTranscription:
		return true
	}
	return false
}

// Key addresses one artifact in the object store.
type Key struct {
	Date      time.Time
	SessionID string
	Stage     Stage
	Filename  string
}

// New builds a key from session identity. The filename embeds the patient
// name and session date so that the analysis stage can recover both from
// the transcript path without a lookup.
func New(date time.Time, sessionID string, stage Stage, firstName, lastName, ext string) Key {
	name := fmt.Sprintf("%s-%s-%s.%s",
		sanitizeName(firstName), sanitizeName(lastName), date.Format("2006-01-02"), ext)
	return Key{Date: date, SessionID: sessionID, Stage: stage, Filename: name}
}

// Path renders the object name. The format is load-bearing: every stage
// and ParsePath must agree on it byte for byte.
func (k Key) Path() string {
	return fmt.Sprintf("%04d/%02d/%02d/%s/%s/%s",
		k.Date.Year(), k.Date.Month(), k.Date.Day(), k.SessionID, k.Stage, k.Filename)
}

// Next derives the key for the following stage's output: same session,
// same date, same base filename, new stage directory and extension.
func (k Key) Next(stage Stage, ext string) Key {
	base := strings.TrimSuffix(k.Filename, path.Ext(k.Filename))
	return Key{Date: k.Date, SessionID: k.SessionID, Stage: stage, Filename: base + "." + ext}
}

// Metadata is the session identity recoverable from a key.
type Metadata struct {
	SessionID string
	Date      time.Time
	FirstName string
	LastName  string
}

// Meta extracts the patient identity embedded in the key's filename.
func (k Key) Meta() (Metadata, error) {
	base := strings.TrimSuffix(k.Filename, path.Ext(k.Filename))
	parts := strings.SplitN(base, "-", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return Metadata{}, fmt.Errorf("parse artifact filename %q: want first-last-date", k.Filename)
	}
	return Metadata{
		SessionID: k.SessionID,
		Date:      k.Date,
		FirstName: parts[0],
		LastName:  parts[1],
	}, nil
}

// ParsePath parses an object name produced by Key.Path.
func ParsePath(p string) (Key, error) {
	parts := strings.Split(p, "/")
	if len(parts) != 6 {
		return Key{}, fmt.Errorf("parse artifact path %q: want 6 segments, got %d", p, len(parts))
	}
	date, err := time.Parse("2006/01/02", strings.Join(parts[:3], "/"))
	if err != nil {
		return Key{}, fmt.Errorf("parse artifact path %q: invalid date: %w", p, err)
	}
	sessionID := parts[3]
	if sessionID == "" {
		return Key{}, fmt.Errorf("parse artifact path %q: empty session id", p)
	}
	stage := Stage(parts[4])
	if !validStage(stage) {
		return Key{}, fmt.Errorf("parse artifact path %q: unknown stage %q", p, parts[4])
	}
	if parts[5] == "" {
		return Key{}, fmt.Errorf("parse artifact path %q: empty filename", p)
	}
	return Key{Date: date, SessionID: sessionID, Stage: stage, Filename: parts[5]}, nil
}

// sanitizeName lowercases a patient name and strips everything that would
// collide with the filename's dash separators.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
