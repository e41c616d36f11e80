package models

import (
	"fmt"
	"time"
)

// AgentRole identifies which analyst persona authored a message.
// The set is closed; the turn-order policy switches on this tag.
type AgentRole string

const (
	RoleFinancialAnalyst AgentRole = "financial_analyst"
	RoleMarketContext    AgentRole = "market_context"
	RoleRiskChallenger   AgentRole = "risk_challenger"
	RoleOrchestrator     AgentRole = "system_orchestrator"
)

// Valid reports whether r is one of the known agent roles.
func (r AgentRole) Valid() bool {
	switch r {
	case RoleFinancialAnalyst, RoleMarketContext, RoleRiskChallenger, RoleOrchestrator:
		return true
	}
	return false
}

// ParseAgentRole converts a string to an AgentRole.
func ParseAgentRole(s string) (AgentRole, error) {
	r := AgentRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown agent role: %q", s)
	}
	return r, nil
}

// CitationKind distinguishes signal references from external URLs.
type CitationKind string

const (
	CitationSignal CitationKind = "signal"
	CitationURL    CitationKind = "url"
)

// Citation is a source reference substantiating a message's claim:
// either a signal identifier (sig:<type>:<symbol>) or an external URL.
type Citation struct {
	Kind  CitationKind `json:"kind"`
	Value string       `json:"value"`
}

// Message is one ordered, role-attributed contribution within a session.
// Order values form a contiguous sequence starting at 0 within a session,
// assigned at append time and never reassigned. Messages are append-only.
type Message struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Role       AgentRole  `json:"role"`
	Content    string     `json:"content"`
	Confidence *float64   `json:"confidence,omitempty"`
	Order      int        `json:"order"`
	Citations  []Citation `json:"citations,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
