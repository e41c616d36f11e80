// Package db provides SurrealDB query functions for debate persistence.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ debate.Store = (*Client)(nil)

// sessionRow is the database shape of a session. Outcome and content
// descriptor fields are flattened onto the row; conversion back to the
// domain model happens in toSession.
type sessionRow struct {
	ID                  surrealmodels.RecordID `json:"id"`
	OwnerID             *string                `json:"owner_id,omitempty"`
	ContentType         string                 `json:"content_type"`
	ContentSource       *string                `json:"content_source,omitempty"`
	ContentURL          *string                `json:"content_url,omitempty"`
	ContentBody         *string                `json:"content_body,omitempty"`
	Metadata            map[string]string      `json:"metadata,omitempty"`
	State               string                 `json:"state"`
	FailureReason       *string                `json:"failure_reason,omitempty"`
	ConsensusReached    *bool                  `json:"consensus_reached,omitempty"`
	FinalRecommendation *string                `json:"final_recommendation,omitempty"`
	ConfidenceScore     *float64               `json:"confidence_score,omitempty"`
	StartedAt           time.Time              `json:"started_at"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
}

// messageRow is the database shape of a message.
type messageRow struct {
	ID         surrealmodels.RecordID `json:"id"`
	Session    surrealmodels.RecordID `json:"session"`
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Confidence *float64               `json:"confidence,omitempty"`
	Ord        int                    `json:"ord"`
	Citations  []models.Citation      `json:"citations"`
	CreatedAt  time.Time              `json:"created_at"`
}

// signalRow is the database shape of a signal registry entry.
type signalRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	Symbol    string                 `json:"symbol"`
	Kind      string                 `json:"kind"`
	Strength  float64                `json:"strength"`
	Summary   *string                `json:"summary,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// recordIDString safely extracts the string ID from a SurrealDB RecordID.
func recordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *sessionRow) toSession() (*models.Session, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:      id,
		OwnerID: r.OwnerID,
		Content: models.ContentDescriptor{
			Type:     models.ContentType(r.ContentType),
			Source:   derefString(r.ContentSource),
			URL:      derefString(r.ContentURL),
			Body:     derefString(r.ContentBody),
			Metadata: r.Metadata,
		},
		State:         models.SessionState(r.State),
		FailureReason: derefString(r.FailureReason),
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
	if session.State == models.StateCompleted {
		outcome := models.Outcome{
			FinalRecommendation: r.FinalRecommendation,
			ConfidenceScore:     r.ConfidenceScore,
		}
		if r.ConsensusReached != nil {
			outcome.ConsensusReached = *r.ConsensusReached
		}
		session.Outcome = &outcome
	}
	return session, nil
}

func (r *messageRow) toMessage() (*models.Message, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	sessionID, err := recordIDString(r.Session)
	if err != nil {
		return nil, err
	}
	return &models.Message{
		ID:         id,
		SessionID:  sessionID,
		Role:       models.AgentRole(r.Role),
		Content:    r.Content,
		Confidence: r.Confidence,
		Order:      r.Ord,
		Citations:  r.Citations,
		CreatedAt:  r.CreatedAt,
	}, nil
}

func (r *signalRow) toSignal() (*models.Signal, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.Signal{
		ID:        id,
		Symbol:    r.Symbol,
		Kind:      r.Kind,
		Strength:  r.Strength,
		Summary:   derefString(r.Summary),
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// sessionContent builds the CONTENT document for session writes. The state
// and its dependent fields (outcome, completed_at, failure_reason) always
// travel in the same write, so readers never see them out of sync.
func sessionContent(s *models.Session) map[string]any {
	content := map[string]any{
		"owner_id":       s.OwnerID,
		"content_type":   string(s.Content.Type),
		"content_source": optString(s.Content.Source),
		"content_url":    optString(s.Content.URL),
		"content_body":   optString(s.Content.Body),
		"metadata":       s.Content.Metadata,
		"state":          string(s.State),
		"failure_reason": optString(s.FailureReason),
		"started_at":     s.StartedAt,
		"completed_at":   s.CompletedAt,
	}
	if s.Outcome != nil {
		content["consensus_reached"] = s.Outcome.ConsensusReached
		content["final_recommendation"] = s.Outcome.FinalRecommendation
		content["confidence_score"] = s.Outcome.ConfidenceScore
	}
	return content
}

// CreateSession persists a new session.
func (c *Client) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := surrealdb.Query[[]sessionRow](ctx, c.db, `
		CREATE type::record("session", $id) CONTENT $content
	`, map[string]any{
		"id":      session.ID,
		"content": sessionContent(session),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", wrapQueryError(err))
	}
	return nil
}

// GetSession retrieves a session by ID.
func (c *Client) GetSession(ctx context.Context, id string) (*models.Session, error) {
	results, err := surrealdb.Query[[]sessionRow](ctx, c.db, `
		SELECT * FROM type::record("session", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: %s", debate.ErrNotFound, id)
	}
	return (*results)[0].Result[0].toSession()
}

// ListSessions returns sessions ordered by start time descending.
func (c *Client) ListSessions(ctx context.Context, state *models.SessionState, limit, offset int) ([]models.Session, error) {
	stateClause := ""
	vars := map[string]any{
		"limit": normalizeLimit(limit),
		"start": max(offset, 0),
	}
	if state != nil {
		stateClause = "WHERE state = $state"
		vars["state"] = string(*state)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM session %s ORDER BY started_at DESC LIMIT $limit START $start
	`, stateClause)

	results, err := surrealdb.Query[[]sessionRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", wrapQueryError(err))
	}

	return collectSessions(results)
}

// UpdateSession replaces the session document in a single statement.
func (c *Client) UpdateSession(ctx context.Context, session *models.Session) error {
	results, err := surrealdb.Query[[]sessionRow](ctx, c.db, `
		UPDATE type::record("session", $id) CONTENT $content
	`, map[string]any{
		"id":      session.ID,
		"content": sessionContent(session),
	})
	if err != nil {
		return fmt.Errorf("update session: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("%w: %s", debate.ErrNotFound, session.ID)
	}
	return nil
}

// DeleteSession removes a session and, through exclusive ownership, all of
// its messages.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		DELETE message WHERE session = type::record("session", $id);
		DELETE type::record("session", $id);
		COMMIT TRANSACTION;
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete session: %w", wrapQueryError(err))
	}
	return nil
}

// AppendMessage assigns the next order value and inserts the message in one
// transaction. The session state is re-checked inside the transaction so an
// append racing a cancel is rejected, and the unique (session, ord) index
// backstops the count-based assignment under concurrent writers.
func (c *Client) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	_, err := surrealdb.Query[any](ctx, c.db, `
		BEGIN TRANSACTION;
		LET $sess = (SELECT state FROM ONLY type::record("session", $session));
		IF $sess = NONE {
			THROW "session missing";
		};
		IF $sess.state NOT IN ["processing", "debating"] {
			THROW "session not appendable";
		};
		LET $ord = array::first(SELECT VALUE count() FROM message WHERE session = type::record("session", $session) GROUP ALL) ?? 0;
		CREATE type::record("message", $id) CONTENT {
			session: type::record("session", $session),
			role: $role,
			content: $content,
			confidence: $confidence,
			ord: $ord,
			citations: $citations,
			created_at: time::now()
		};
		COMMIT TRANSACTION;
	`, map[string]any{
		"id":         msg.ID,
		"session":    msg.SessionID,
		"role":       string(msg.Role),
		"content":    msg.Content,
		"confidence": msg.Confidence,
		"citations":  citationDocs(msg.Citations),
	})
	if err != nil {
		wrapped := wrapQueryError(err)
		if werr, ok := isMissingSession(wrapped, msg.SessionID); ok {
			return nil, werr
		}
		return nil, fmt.Errorf("append message: %w", wrapped)
	}

	return c.getMessage(ctx, msg.ID)
}

func isMissingSession(err error, sessionID string) (error, bool) {
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) && strings.Contains(queryErr.Message, "session missing") {
		return fmt.Errorf("%w: %s", debate.ErrNotFound, sessionID), true
	}
	return nil, false
}

// getMessage retrieves a message by ID.
func (c *Client) getMessage(ctx context.Context, id string) (*models.Message, error) {
	results, err := surrealdb.Query[[]messageRow](ctx, c.db, `
		SELECT * FROM type::record("message", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get message: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("%w: message %s", debate.ErrNotFound, id)
	}
	return (*results)[0].Result[0].toMessage()
}

// ListMessages returns a session's messages in append order.
func (c *Client) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	results, err := surrealdb.Query[[]messageRow](ctx, c.db, `
		SELECT * FROM message WHERE session = type::record("session", $session)
		ORDER BY ord ASC LIMIT $limit START $start
	`, map[string]any{
		"session": sessionID,
		"limit":   normalizeLimit(limit),
		"start":   max(offset, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		// Distinguish an empty log from an unknown session.
		if _, err := c.GetSession(ctx, sessionID); err != nil {
			return nil, err
		}
		return []models.Message{}, nil
	}
	messages := make([]models.Message, 0, len((*results)[0].Result))
	for i := range (*results)[0].Result {
		msg, err := (*results)[0].Result[i].toMessage()
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

// UpsertSignal creates or refreshes a signal registry entry.
func (c *Client) UpsertSignal(ctx context.Context, signal *models.Signal) error {
	_, err := surrealdb.Query[[]signalRow](ctx, c.db, `
		UPSERT type::record("signal", $id) CONTENT {
			symbol: $symbol,
			kind: $kind,
			strength: $strength,
			summary: $summary,
			updated_at: $updated_at
		}
	`, map[string]any{
		"id":         signal.ID,
		"symbol":     signal.Symbol,
		"kind":       signal.Kind,
		"strength":   signal.Strength,
		"summary":    optString(signal.Summary),
		"updated_at": signal.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("upsert signal: %w", wrapQueryError(err))
	}
	return nil
}

// GetSignal retrieves a signal by ID. Returns nil if not found.
func (c *Client) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	results, err := surrealdb.Query[[]signalRow](ctx, c.db, `
		SELECT * FROM type::record("signal", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return (*results)[0].Result[0].toSignal()
}

// ListSignals returns signal registry entries, most recently updated first.
func (c *Client) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	results, err := surrealdb.Query[[]signalRow](ctx, c.db, `
		SELECT * FROM signal ORDER BY updated_at DESC LIMIT $limit
	`, map[string]any{"limit": normalizeLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Signal{}, nil
	}
	signals := make([]models.Signal, 0, len((*results)[0].Result))
	for i := range (*results)[0].Result {
		sig, err := (*results)[0].Result[i].toSignal()
		if err != nil {
			return nil, err
		}
		signals = append(signals, *sig)
	}
	return signals, nil
}

// HasSignal reports whether a signal ID exists in the registry.
func (c *Client) HasSignal(ctx context.Context, id string) (bool, error) {
	sig, err := c.GetSignal(ctx, id)
	if err != nil {
		return false, err
	}
	return sig != nil, nil
}

func collectSessions(results *[]surrealdb.QueryResult[[]sessionRow]) ([]models.Session, error) {
	if results == nil || len(*results) == 0 {
		return []models.Session{}, nil
	}
	sessions := make([]models.Session, 0, len((*results)[0].Result))
	for i := range (*results)[0].Result {
		session, err := (*results)[0].Result[i].toSession()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// citationDocs flattens citations for storage.
func citationDocs(citations []models.Citation) []map[string]any {
	docs := make([]map[string]any, 0, len(citations))
	for _, c := range citations {
		docs = append(docs, map[string]any{"kind": string(c.Kind), "value": c.Value})
	}
	return docs
}

// normalizeLimit caps unbounded listings; SurrealDB has no LIMIT-less START.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 10000
	}
	return limit
}
