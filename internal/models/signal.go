package models

import (
	"fmt"
	"strings"
	"time"
)

// SignalIDPrefix prefixes every signal identifier.
const SignalIDPrefix = "sig:"

// Signal is a cached financial signal that messages may cite.
type Signal struct {
	ID        string    `json:"id"` // sig:<type>:<symbol>
	Symbol    string    `json:"symbol"`
	Kind      string    `json:"kind"` // earnings, momentum, macro, sentiment, ...
	Strength  float64   `json:"strength"`
	Summary   string    `json:"summary,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignalID builds the canonical identifier for a signal.
func SignalID(kind, symbol string) string {
	return SignalIDPrefix + kind + ":" + strings.ToUpper(symbol)
}

// ParseSignalID splits a signal identifier into kind and symbol.
func ParseSignalID(id string) (kind, symbol string, err error) {
	if !strings.HasPrefix(id, SignalIDPrefix) {
		return "", "", fmt.Errorf("missing %q prefix: %q", SignalIDPrefix, id)
	}
	rest := strings.TrimPrefix(id, SignalIDPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed signal id: %q", id)
	}
	return parts[0], parts[1], nil
}
