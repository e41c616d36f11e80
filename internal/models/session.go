// Package models defines data structures for the sigdebate debate engine.
package models

import (
	"strings"
	"time"
)

// SessionState is the lifecycle state of a debate session.
type SessionState string

const (
	StateInitialized SessionState = "initialized"
	StateProcessing  SessionState = "processing"
	StateDebating    SessionState = "debating"
	StateCompleted   SessionState = "completed"
	StateFailed      SessionState = "failed"
	StateCancelled   SessionState = "cancelled"
)

// Terminal reports whether the state has no outgoing transitions.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Valid reports whether s is one of the known session states.
func (s SessionState) Valid() bool {
	switch s {
	case StateInitialized, StateProcessing, StateDebating,
		StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// ContentType tags the kind of financial content a session debates.
type ContentType string

const (
	ContentArticle    ContentType = "article"
	ContentVideo      ContentType = "video"
	ContentDirectText ContentType = "direct_text"
	ContentReport     ContentType = "report"
	ContentCommentary ContentType = "commentary"
)

// Metadata keys recognized on a session's content descriptor.
// The map is free-form but these keys are the documented set (schema v1).
const (
	MetaKeySource = "source"
	MetaKeySymbol = "symbol"
	MetaKeyLocale = "locale"
	MetaKeySchema = "schema"
)

// ContentDescriptor describes the piece of content a session debates.
type ContentDescriptor struct {
	Type     ContentType       `json:"type"`
	Source   string            `json:"source,omitempty"`
	URL      string            `json:"url,omitempty"`
	Body     string            `json:"body,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Empty reports whether the descriptor carries neither a body nor a URL.
func (c ContentDescriptor) Empty() bool {
	return strings.TrimSpace(c.Body) == "" && strings.TrimSpace(c.URL) == ""
}

// Outcome holds the aggregated result of a completed debate.
// All three fields are written together with the transition to Completed.
type Outcome struct {
	ConsensusReached    bool     `json:"consensus_reached"`
	FinalRecommendation *string  `json:"final_recommendation,omitempty"`
	ConfidenceScore     *float64 `json:"confidence_score,omitempty"`
}

// Session is one end-to-end debate over a single piece of content.
// Outcome is non-nil only in StateCompleted; CompletedAt is non-nil only
// in a terminal state.
type Session struct {
	ID            string            `json:"id"`
	OwnerID       *string           `json:"owner_id,omitempty"`
	Content       ContentDescriptor `json:"content"`
	State         SessionState      `json:"state"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Outcome       *Outcome          `json:"outcome,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}
