// Package server provides the HTTP API surface over the debate coordinator.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/signalboard/sigdebate/internal/debate"
)

// Server wires HTTP routes to the debate coordinator.
type Server struct {
	coordinator *debate.Coordinator
	logger      *slog.Logger
}

// New creates the HTTP server wrapper.
func New(coordinator *debate.Coordinator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{coordinator: coordinator, logger: logger}
}

// Router builds the chi router with the full API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", s.handleCreateSession)
			sr.Get("/", s.handleListSessions)
			sr.Get("/{sessionID}", s.handleGetSession)
			sr.Delete("/{sessionID}", s.handleDeleteSession)
			sr.Post("/{sessionID}/advance", s.handleAdvance)
			sr.Post("/{sessionID}/run", s.handleRun)
			sr.Post("/{sessionID}/cancel", s.handleCancel)
			sr.Get("/{sessionID}/messages", s.handleListMessages)
			sr.Get("/{sessionID}/watch", s.handleWatch)
		})

		api.Route("/signals", func(sr chi.Router) {
			sr.Get("/", s.handleListSignals)
			sr.Put("/{signalID}", s.handleUpsertSignal)
		})

		api.Get("/stats", s.handleStats)
	})

	return r
}
