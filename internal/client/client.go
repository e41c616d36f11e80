// Package client provides an HTTP client for the sigdebate server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalboard/sigdebate/internal/metrics"
	"github.com/signalboard/sigdebate/internal/models"
)

// Client talks to the sigdebate REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses SIGDEBATE_SERVER_URL env var or defaults to localhost:8486.
// Timeout can be configured via SIGDEBATE_CLIENT_TIMEOUT env var (default 10m, run can
// block on several LLM round trips).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SIGDEBATE_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8486"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 10 * time.Minute
	if t := os.Getenv("SIGDEBATE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the error payload returned by the server.
type apiError struct {
	Error string `json:"error"`
}

// do sends a request and decodes the JSON response into result (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// CreateSession creates a new debate session for the given content.
func (c *Client) CreateSession(ctx context.Context, content models.ContentDescriptor, ownerID *string) (*models.Session, error) {
	payload := map[string]any{"content": content}
	if ownerID != nil {
		payload["owner_id"] = *ownerID
	}
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches a session by ID.
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions lists sessions, optionally filtered by state.
func (c *Client) ListSessions(ctx context.Context, state string, limit, offset int) ([]models.Session, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}
	path := "/api/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var sessions []models.Session
	if err := c.do(ctx, http.MethodGet, path, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session and its message log.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil)
}

// Advance performs a single debate step and returns the updated session.
func (c *Client) Advance(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/advance", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Run drives a session until it reaches a terminal state.
func (c *Client) Run(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/run", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Cancel requests cancellation of a session.
func (c *Client) Cancel(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/cancel", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListMessages returns the message log of a session in order.
func (c *Client) ListMessages(ctx context.Context, id string, limit, offset int) ([]models.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}
	path := "/api/sessions/" + url.PathEscape(id) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var messages []models.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// UpsertSignal creates or replaces a signal in the registry.
func (c *Client) UpsertSignal(ctx context.Context, signal models.Signal) (*models.Signal, error) {
	var out models.Signal
	if err := c.do(ctx, http.MethodPut, "/api/signals/"+url.PathEscape(signal.ID), signal, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSignals lists registered signals.
func (c *Client) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	path := "/api/signals"
	if limit > 0 {
		path += "?limit=" + fmt.Sprintf("%d", limit)
	}
	var signals []models.Signal
	if err := c.do(ctx, http.MethodGet, path, nil, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// Stats returns server runtime statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var stats metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// WatchEvent is a single event from the session watch stream.
type WatchEvent struct {
	SessionID string              `json:"session_id"`
	Message   *models.Message     `json:"message,omitempty"`
	State     models.SessionState `json:"state"`
}

// Watch streams live session events over a websocket. The returned channel is
// closed when the session reaches a terminal state or the context is done.
func (c *Client) Watch(ctx context.Context, id string) (<-chan WatchEvent, error) {
	wsURL := strings.Replace(c.baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/api/sessions/" + url.PathEscape(id) + "/watch"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("watch dial: %s - %s", resp.Status, string(body))
		}
		return nil, fmt.Errorf("watch dial: %w", err)
	}

	events := make(chan WatchEvent, 16)
	go func() {
		defer close(events)
		defer conn.Close()
		for {
			var ev WatchEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Message == nil && ev.State.Terminal() {
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return events, nil
}
