package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
	"github.com/signalboard/sigdebate/internal/server"
	"github.com/signalboard/sigdebate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// roleGenerator returns a canned draft for every role.
type roleGenerator struct{}

func (roleGenerator) Generate(_ context.Context, _ *models.Session, role models.AgentRole, _ []models.Message) (debate.Draft, error) {
	conf := 0.7
	if role == models.RoleOrchestrator {
		return debate.Draft{Content: "Buy"}, nil
	}
	return debate.Draft{Content: fmt.Sprintf("%s take", role), Confidence: &conf}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	coord := debate.NewCoordinator(store.NewMemory(), roleGenerator{}, debate.StaticClassifier(true), nil, testLogger(), nil)
	ts := httptest.NewServer(server.New(coord, testLogger()).Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, payload any, out any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createSession(t *testing.T, ts *httptest.Server) models.Session {
	t.Helper()
	var session models.Session
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", map[string]any{
		"content": map[string]any{
			"type": "direct_text",
			"body": "NVDA beat earnings estimates by 12%",
		},
	}, &session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return session
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)

	session := createSession(t, ts)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, models.StateInitialized, session.State)
	assert.False(t, session.StartedAt.IsZero())
}

func TestCreateSessionInvalidContent(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", map[string]any{
		"content": map[string]any{"type": "direct_text"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSessionNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/sessions/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdvanceToCompletion(t *testing.T) {
	ts := newTestServer(t)
	created := createSession(t, ts)

	var session models.Session
	for i := 0; i < 4; i++ {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/advance", nil, &session)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Equal(t, models.StateCompleted, session.State)
	require.NotNil(t, session.Outcome)
	assert.True(t, session.Outcome.ConsensusReached)
	require.NotNil(t, session.Outcome.FinalRecommendation)
	assert.Equal(t, "Buy", *session.Outcome.FinalRecommendation)

	// Advancing a completed session conflicts.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/advance", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var messages []models.Message
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+created.ID+"/messages", nil, &messages)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, messages, 4)
	for i, m := range messages {
		assert.Equal(t, i, m.Order)
	}
}

func TestRunEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := createSession(t, ts)

	var session models.Session
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/run", nil, &session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StateCompleted, session.State)
}

func TestCancelEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := createSession(t, ts)

	var session models.Session
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/cancel", nil, &session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StateCancelled, session.State)

	// Cancel is idempotent.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/cancel", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A cancelled session cannot advance.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/advance", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListSessionsFilter(t *testing.T) {
	ts := newTestServer(t)
	first := createSession(t, ts)
	createSession(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+first.ID+"/run", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var completed []models.Session
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/sessions?state=completed", nil, &completed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/sessions?state=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := createSession(t, ts)

	resp := doJSON(t, http.MethodDelete, ts.URL+"/api/sessions/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/sessions/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignalEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var signal models.Signal
	resp := doJSON(t, http.MethodPut, ts.URL+"/api/signals/sig:earnings:NVDA", map[string]any{
		"symbol":   "NVDA",
		"kind":     "earnings",
		"strength": 0.8,
		"summary":  "Q2 beat",
	}, &signal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sig:earnings:NVDA", signal.ID)
	assert.False(t, signal.UpdatedAt.IsZero())

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/signals/garbage", map[string]any{
		"symbol": "X", "kind": "earnings",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var signals []models.Signal
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/signals", nil, &signals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, signals, 1)
}

func TestWatchEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := createSession(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + created.ID + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/run", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messageEvents int
	for {
		var ev struct {
			SessionID string              `json:"session_id"`
			Message   *models.Message     `json:"message,omitempty"`
			State     models.SessionState `json:"state"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		assert.Equal(t, created.ID, ev.SessionID)
		if ev.Message != nil {
			messageEvents++
			continue
		}
		if ev.State.Terminal() {
			assert.Equal(t, models.StateCompleted, ev.State)
			break
		}
	}
	assert.Equal(t, 4, messageEvents)
}

func TestWatchUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/nope/watch"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	created := createSession(t, ts)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+created.ID+"/run", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Counters struct {
			SessionsCreated   int `json:"sessions_created"`
			SessionsCompleted int `json:"sessions_completed"`
			MessagesAppended  int `json:"messages_appended"`
		} `json:"counters"`
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/stats", nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, stats.Counters.SessionsCreated)
	assert.Equal(t, 1, stats.Counters.SessionsCompleted)
	assert.Equal(t, 4, stats.Counters.MessagesAppended)
}
