package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"psychsessions/internal/db"
)

// SessionReader is the read side of the session store.
// *db.SessionRepository satisfies it.
type SessionReader interface {
	ListSessions(ctx context.Context) ([]db.SessionSummary, error)
	GetSession(ctx context.Context, id uuid.UUID) (*db.SessionDetail, error)
}

// QueryService serves processed sessions and their insights.
type QueryService struct {
	sessions SessionReader
	router   chi.Router
}

// NewQueryService builds the query service and its routes.
func NewQueryService(sessions SessionReader) *QueryService {
	s := &QueryService{sessions: sessions}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/sessions", s.handleList)
	r.Get("/sessions/{sessionID}", s.handleGet)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *QueryService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *QueryService) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *QueryService) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListSessions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sessions")
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *QueryService) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	detail, err := s.sessions.GetSession(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to get session")
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
