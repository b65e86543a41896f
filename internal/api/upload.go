package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"psychsessions/internal/artifact"
	"psychsessions/internal/event"
	"psychsessions/internal/storage"
	"psychsessions/internal/worker"
)

// maxUploadBytes caps one session recording at 2 GiB.
const maxUploadBytes = 2 << 30

// UploadService accepts session video uploads, stores them, and kicks
// off the processing pipeline.
type UploadService struct {
	store     storage.ObjectStore
	publisher worker.Publisher
	bucket    string
	router    chi.Router
}

// NewUploadService builds the ingress service and its routes.
func NewUploadService(store storage.ObjectStore, publisher worker.Publisher, bucket string) *UploadService {
	s := &UploadService{store: store, publisher: publisher, bucket: bucket}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/sessions/upload", s.handleUpload)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *UploadService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *UploadService) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload validates the multipart form, stores the video at its
// deterministic path, and publishes video.upload.completed. The store
// happens before the publish so a consumer can never observe an event
// whose artifact is missing.
func (s *UploadService) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	form, err := parseUploadForm(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	defer form.file.Close()

	data, err := io.ReadAll(form.file)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("read upload: %v", err))
		return
	}

	sessionID := uuid.New().String()
	key := artifact.New(form.date, sessionID, artifact.StageVideo, form.firstName, form.lastName, form.ext)

	ctx := r.Context()
	if err := s.store.Store(ctx, s.bucket, key.Path(), data, form.contentType); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to store upload")
		writeError(w, http.StatusInternalServerError, "failed to store session video")
		return
	}

	env := event.Envelope{
		EventType:   event.VideoUploadCompleted,
		SessionID:   sessionID,
		Bucket:      s.bucket,
		ObjectKey:   key.Path(),
		ContentType: form.contentType,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event.VideoUploadCompleted, env); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish upload event")
		writeError(w, http.StatusInternalServerError, "failed to start session processing")
		return
	}

	log.Info().
		Str("session_id", sessionID).
		Str("object_key", key.Path()).
		Msg("Session uploaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Session uploaded successfully, processing started",
		"session_id": sessionID,
	})
}

type uploadForm struct {
	file        io.ReadCloser
	contentType string
	ext         string
	date        time.Time
	firstName   string
	lastName    string
}

func parseUploadForm(r *http.Request) (*uploadForm, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "video/mp4" {
		file.Close()
		return nil, fmt.Errorf("unsupported content type %q: want video/mp4", contentType)
	}
	ext := strings.TrimPrefix(path.Ext(header.Filename), ".")
	if ext == "" {
		ext = "mp4"
	}

	date, err := time.Parse("2006-01-02", r.FormValue("date_of_session"))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("invalid date_of_session: want YYYY-MM-DD")
	}

	firstName := strings.TrimSpace(r.FormValue("patient_first_name"))
	lastName := strings.TrimSpace(r.FormValue("patient_last_name"))
	if firstName == "" || lastName == "" {
		file.Close()
		return nil, fmt.Errorf("patient_first_name and patient_last_name are required")
	}

	return &uploadForm{
		file:        file,
		contentType: contentType,
		ext:         ext,
		date:        date,
		firstName:   firstName,
		lastName:    lastName,
	}, nil
}
