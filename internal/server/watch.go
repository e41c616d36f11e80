package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/signalboard/sigdebate/internal/debate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from another origin in dev.
		return true
	},
}

const (
	watchWriteTimeout = 10 * time.Second
	watchPingInterval = 30 * time.Second
)

// handleWatch streams a session's debate over a websocket: one WatchEvent
// per already-appended message, then live events until the session reaches
// a terminal state or the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.coordinator.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondDebateError(w, err)
		return
	}

	// Subscribe before replaying history so no event falls in the gap;
	// duplicates are filtered by order below.
	events, cancel := s.coordinator.Watch(sessionID)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	lastOrder := -1
	history, err := s.coordinator.ListMessages(r.Context(), sessionID, 0, 0)
	if err == nil {
		for i := range history {
			msg := history[i]
			ev := debate.WatchEvent{SessionID: sessionID, Message: &msg, State: session.State}
			if writeEvent(conn, ev) != nil {
				return
			}
			lastOrder = msg.Order
		}
	}
	if session.State.Terminal() {
		_ = writeEvent(conn, debate.WatchEvent{SessionID: sessionID, State: session.State})
		return
	}

	// Drain client frames so close/ping-pong handling works.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Message != nil && ev.Message.Order <= lastOrder {
				continue
			}
			if writeEvent(conn, ev) != nil {
				return
			}
			if ev.Message == nil && ev.State.Terminal() {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev debate.WatchEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
	return conn.WriteJSON(ev)
}
