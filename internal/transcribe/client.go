// Package transcribe implements the transcription stage against the
// AssemblyAI HTTP API: upload the audio, create a transcript job with
// speaker labels, poll until the job settles.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.assemblyai.com/v2"

// Utterance is one speaker-labeled segment of the transcript. Start and
// End are milliseconds from the beginning of the audio.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Client calls the AssemblyAI v2 API.
type Client struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// NewClient returns a client with production defaults. The HTTP timeout
// covers one request, not the whole job; the worker's external-call
// timeout bounds the end-to-end transcription.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:      defaultBaseURL,
		APIKey:       apiKey,
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
		PollInterval: 3 * time.Second,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

type transcriptResponse struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Utterances []Utterance `json:"utterances"`
}

// Transcribe runs the full upload/create/poll sequence and returns the
// speaker-labeled utterances. A job that settles in the error state is a
// normal processing failure, not a panic: the caller nacks and the
// delivery limit decides.
func (c *Client) Transcribe(ctx context.Context, audio []byte) ([]Utterance, error) {
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return nil, err
	}

	jobID, err := c.createJob(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("job_id", jobID).Msg("Transcription job created")

	return c.await(ctx, jobID)
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp uploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if resp.UploadURL == "" {
		return "", fmt.Errorf("upload audio: empty upload_url")
	}
	return resp.UploadURL, nil
}

func (c *Client) createJob(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: audioURL, SpeakerLabels: true})
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var resp transcriptResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create job: empty job id")
	}
	return resp.ID, nil
}

// await polls the job at a constant interval until it settles. The
// context carries the worker's external-call timeout, which is what
// bounds an endlessly-queued job.
func (c *Client) await(ctx context.Context, jobID string) ([]Utterance, error) {
	var result transcriptResponse
	poll := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transcript/"+jobID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.APIKey)

		var resp transcriptResponse
		if err := c.do(req, &resp); err != nil {
			return err
		}
		switch resp.Status {
		case "completed":
			result = resp
			return nil
		case "error":
			return backoff.Permanent(fmt.Errorf("job failed: %s", resp.Error))
		default:
			return fmt.Errorf("job %s", resp.Status)
		}
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(c.PollInterval), ctx)
	if err := backoff.Retry(poll, policy); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return result.Utterances, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.URL.Path, err)
	}
	return nil
}
