package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
		PollInterval: time.Millisecond,
	}
}

func TestTranscribe(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload":
			json.NewEncoder(w).Encode(uploadResponse{UploadURL: "https://cdn.example/audio"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcript":
			var req transcriptRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "https://cdn.example/audio", req.AudioURL)
			assert.True(t, req.SpeakerLabels)
			json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/transcript/job-1":
			if polls.Add(1) < 3 {
				json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "processing"})
				return
			}
			json.NewEncoder(w).Encode(transcriptResponse{
				ID:     "job-1",
				Status: "completed",
				Utterances: []Utterance{
					{Speaker: "A", Text: "Hello.", Start: 0, End: 900},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	utterances, err := testClient(srv.URL).Transcribe(context.Background(), []byte("pcm"))
	require.NoError(t, err)
	require.Len(t, utterances, 1)
	assert.Equal(t, "A", utterances[0].Speaker)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestTranscribeJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			json.NewEncoder(w).Encode(uploadResponse{UploadURL: "https://cdn.example/audio"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcript":
			json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "queued"})
		default:
			json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "error", Error: "unsupported codec"})
		}
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Transcribe(context.Background(), []byte("pcm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported codec")
}

func TestTranscribeUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Transcribe(context.Background(), []byte("pcm"))
	assert.Error(t, err)
}

func TestTranscribeHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/upload":
			json.NewEncoder(w).Encode(uploadResponse{UploadURL: "https://cdn.example/audio"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcript":
			json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "queued"})
		default:
			// Never settles; the caller's deadline has to end the poll.
			json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "processing"})
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Transcribe(ctx, []byte("pcm"))
	assert.Error(t, err)
}
