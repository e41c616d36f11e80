// Package store provides the in-memory implementation of the debate
// persistence port, suitable for tests and single-process deployments.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
)

// Memory implements debate.Store with maps guarded by a single RWMutex.
// Append-only message logs: a message is never edited or deleted once
// written. Order assignment and the message write happen under the same
// critical section, so no order value is ever reserved without a row.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	messages map[string][]models.Message
	signals  map[string]*models.Signal
}

var _ debate.Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]models.Message),
		signals:  make(map[string]*models.Signal),
	}
}

// CreateSession persists a new session.
func (s *Memory) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: session %s already exists", debate.ErrConflict, session.ID)
	}
	s.sessions[session.ID] = copySession(session)
	s.messages[session.ID] = make([]models.Message, 0, 8)
	return nil
}

// GetSession returns a copy of the session.
func (s *Memory) GetSession(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", debate.ErrNotFound, id)
	}
	return copySession(session), nil
}

// ListSessions returns sessions ordered by start time descending.
func (s *Memory) ListSessions(_ context.Context, state *models.SessionState, limit, offset int) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if state != nil && session.State != *state {
			continue
		}
		all = append(all, *copySession(session))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })

	return paginate(all, limit, offset), nil
}

// UpdateSession replaces the stored session in one step, so readers see the
// state and its dependent fields together.
func (s *Memory) UpdateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return fmt.Errorf("%w: %s", debate.ErrNotFound, session.ID)
	}
	s.sessions[session.ID] = copySession(session)
	return nil
}

// DeleteSession removes the session together with its message log.
func (s *Memory) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", debate.ErrNotFound, id)
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

// AppendMessage assigns the next order value and persists the message. The
// session's current state is re-checked here so an append racing a cancel
// is rejected post hoc.
func (s *Memory) AppendMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[msg.SessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", debate.ErrNotFound, msg.SessionID)
	}
	if !debate.AppendAllowed(session.State) {
		return nil, fmt.Errorf("%w: session %s is %s", debate.ErrNotAppendable, session.ID, session.State)
	}

	log := s.messages[msg.SessionID]
	stored := copyMessage(msg)
	stored.Order = len(log)
	stored.CreatedAt = time.Now().UTC()
	// Timestamps are monotonically non-decreasing with order.
	if n := len(log); n > 0 && stored.CreatedAt.Before(log[n-1].CreatedAt) {
		stored.CreatedAt = log[n-1].CreatedAt
	}

	s.messages[msg.SessionID] = append(log, *stored)
	return copyMessage(stored), nil
}

// ListMessages returns the session's messages in order. limit<=0 means all.
func (s *Memory) ListMessages(_ context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.messages[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", debate.ErrNotFound, sessionID)
	}
	copied := make([]models.Message, 0, len(log))
	for i := range log {
		copied = append(copied, *copyMessage(&log[i]))
	}
	return paginate(copied, limit, offset), nil
}

// UpsertSignal stores or replaces a signal registry entry.
func (s *Memory) UpsertSignal(_ context.Context, signal *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *signal
	s.signals[signal.ID] = &copied
	return nil
}

// GetSignal returns the signal or nil when unknown.
func (s *Memory) GetSignal(_ context.Context, id string) (*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	signal, ok := s.signals[id]
	if !ok {
		return nil, nil
	}
	copied := *signal
	return &copied, nil
}

// ListSignals returns signals ordered by id. limit<=0 means all.
func (s *Memory) ListSignals(_ context.Context, limit int) ([]models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Signal, 0, len(s.signals))
	for _, signal := range s.signals {
		all = append(all, *signal)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// HasSignal reports whether the signal id exists in the registry.
func (s *Memory) HasSignal(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.signals[id]
	return ok, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func copySession(s *models.Session) *models.Session {
	copied := *s
	if s.OwnerID != nil {
		owner := *s.OwnerID
		copied.OwnerID = &owner
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		copied.CompletedAt = &t
	}
	if s.Outcome != nil {
		out := *s.Outcome
		if s.Outcome.FinalRecommendation != nil {
			rec := *s.Outcome.FinalRecommendation
			out.FinalRecommendation = &rec
		}
		if s.Outcome.ConfidenceScore != nil {
			score := *s.Outcome.ConfidenceScore
			out.ConfidenceScore = &score
		}
		copied.Outcome = &out
	}
	if s.Content.Metadata != nil {
		meta := make(map[string]string, len(s.Content.Metadata))
		for k, v := range s.Content.Metadata {
			meta[k] = v
		}
		copied.Content.Metadata = meta
	}
	return &copied
}

func copyMessage(m *models.Message) *models.Message {
	copied := *m
	if m.Confidence != nil {
		conf := *m.Confidence
		copied.Confidence = &conf
	}
	if m.Citations != nil {
		copied.Citations = append([]models.Citation(nil), m.Citations...)
	}
	return &copied
}
