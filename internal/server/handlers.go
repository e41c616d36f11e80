package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
)

// createSessionRequest is the POST /api/sessions payload.
type createSessionRequest struct {
	Content models.ContentDescriptor `json:"content"`
	OwnerID *string                  `json:"owner_id,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.coordinator.CreateSession(r.Context(), payload.Content, payload.OwnerID)
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var state *models.SessionState
	if raw := r.URL.Query().Get("state"); raw != "" {
		parsed := models.SessionState(raw)
		if !parsed.Valid() {
			respondError(w, http.StatusBadRequest, "unknown state filter")
			return
		}
		state = &parsed
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sessions, err := s.coordinator.ListSessions(r.Context(), state, limit, offset)
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.coordinator.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.respondDebateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	session, err := s.coordinator.Advance(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	session, err := s.coordinator.RunSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.coordinator.Cancel(r.Context(), id); err != nil {
		s.respondDebateError(w, err)
		return
	}
	session, err := s.coordinator.GetSession(r.Context(), id)
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	messages, err := s.coordinator.ListMessages(r.Context(), chi.URLParam(r, "sessionID"), limit, offset)
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// upsertSignalRequest is the PUT /api/signals/{signalID} payload.
type upsertSignalRequest struct {
	Symbol   string  `json:"symbol"`
	Kind     string  `json:"kind"`
	Strength float64 `json:"strength"`
	Summary  string  `json:"summary,omitempty"`
}

func (s *Server) handleUpsertSignal(w http.ResponseWriter, r *http.Request) {
	var payload upsertSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signal := &models.Signal{
		ID:       chi.URLParam(r, "signalID"),
		Symbol:   payload.Symbol,
		Kind:     payload.Kind,
		Strength: payload.Strength,
		Summary:  payload.Summary,
	}
	if err := s.coordinator.UpsertSignal(r.Context(), signal); err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, signal)
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := s.coordinator.ListSignals(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		s.respondDebateError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, signals)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.coordinator.Stats())
}

// respondDebateError maps debate sentinels onto HTTP statuses.
func (s *Server) respondDebateError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, debate.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, debate.ErrInvalidContent),
		errors.Is(err, debate.ErrInvalidCitation),
		errors.Is(err, debate.ErrInvalidConfidence):
		status = http.StatusBadRequest
	case errors.Is(err, debate.ErrInvalidTransition),
		errors.Is(err, debate.ErrNotAppendable),
		errors.Is(err, debate.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, debate.ErrNoGenerator):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	respondError(w, status, err.Error())
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
