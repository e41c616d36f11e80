package debate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signalboard/sigdebate/internal/metrics"
	"github.com/signalboard/sigdebate/internal/models"
)

// DefaultGenerateTimeout bounds a single external generator call.
const DefaultGenerateTimeout = 90 * time.Second

// WatchEvent is pushed to session watchers. Message is nil for the final
// event announcing the terminal state.
type WatchEvent struct {
	SessionID string              `json:"session_id"`
	Message   *models.Message     `json:"message,omitempty"`
	State     models.SessionState `json:"state"`
}

// Coordinator composes the state machine, sequencer, roster and aggregator
// into the public debate API. All state-mutating operations for a session
// run under a per-session mutex; operations on different sessions proceed
// in parallel.
type Coordinator struct {
	store      Store
	generator  Generator
	classifier Classifier
	roster     *Roster
	sequencer  *Sequencer
	validate   ContentValidator
	stats      *metrics.Collector
	logger     *slog.Logger
	now        func() time.Time

	// GenerateTimeout bounds each external generator call. Mutate only
	// before first use.
	GenerateTimeout time.Duration

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	watchers map[string][]chan WatchEvent
}

// NewCoordinator wires the debate core. A nil roster selects the default
// roster; nil logger and stats fall back to no-op equivalents.
func NewCoordinator(store Store, generator Generator, classifier Classifier, roster *Roster, logger *slog.Logger, stats *metrics.Collector) *Coordinator {
	if roster == nil {
		roster = DefaultRoster()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = metrics.NewCollector()
	}
	return &Coordinator{
		store:           store,
		generator:       generator,
		classifier:      classifier,
		roster:          roster,
		sequencer:       NewSequencer(store, NewLedger(store)),
		validate:        DefaultContentValidator,
		stats:           stats,
		logger:          logger,
		now:             time.Now,
		GenerateTimeout: DefaultGenerateTimeout,
		locks:           make(map[string]*sync.Mutex),
		watchers:        make(map[string][]chan WatchEvent),
	}
}

// lockSession acquires the per-session mutex, creating it on first use.
func (c *Coordinator) lockSession(id string) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CreateSession validates the content descriptor and persists a new session
// in Initialized state. Nothing is persisted when validation fails.
func (c *Coordinator) CreateSession(ctx context.Context, content models.ContentDescriptor, ownerID *string) (*models.Session, error) {
	if err := c.validate(content); err != nil {
		return nil, fmt.Errorf("validate content: %w", err)
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Content:   content,
		State:     models.StateInitialized,
		StartedAt: c.now().UTC(),
	}
	if err := c.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.stats.IncSessionsCreated()
	c.logger.Info("session created", "session_id", session.ID, "content_type", content.Type)
	return session, nil
}

// Advance drives the session one step: it enters the debate on first call,
// requests the next role's contribution from the generator, appends it, and
// completes the session once the roster is satisfied. Generator and
// classifier failures move the session to Failed and are reported through
// the returned snapshot, not as an error; messages already appended remain
// for audit.
func (c *Coordinator) Advance(ctx context.Context, sessionID string) (*models.Session, error) {
	if c.generator == nil || c.classifier == nil {
		return nil, ErrNoGenerator
	}

	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State.Terminal() {
		return nil, fmt.Errorf("%w: advance in state %s", ErrInvalidTransition, session.State)
	}

	now := c.now()
	if session.State == models.StateInitialized {
		if err := c.validate(session.Content); err != nil {
			return nil, fmt.Errorf("validate content: %w", err)
		}
		if err := BeginProcessing(session, now); err != nil {
			return nil, err
		}
		if err := c.store.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("update session: %w", err)
		}
	}
	if session.State == models.StateProcessing {
		if err := BeginDebating(session, now); err != nil {
			return nil, err
		}
		if err := c.store.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("update session: %w", err)
		}
	}

	messages, err := c.store.ListMessages(ctx, sessionID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	if role, ok := c.roster.NextRole(messages); ok {
		msg, failed, err := c.generateAndAppend(ctx, session, role, messages)
		if err != nil {
			return nil, err
		}
		if failed {
			return session, nil
		}
		messages = append(messages, *msg)
	}

	if c.roster.Satisfied(messages) {
		if err := c.complete(ctx, session, messages); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// generateAndAppend asks the generator for the role's contribution and
// appends it. failed=true means the session was moved to Failed because of
// a collaborator error; err is reserved for caller-facing validation and
// concurrency errors.
func (c *Coordinator) generateAndAppend(ctx context.Context, session *models.Session, role models.AgentRole, prior []models.Message) (msg *models.Message, failed bool, err error) {
	gctx, cancel := context.WithTimeout(ctx, c.GenerateTimeout)
	defer cancel()

	start := c.now()
	draft, err := c.generator.Generate(gctx, session, role, prior)
	c.stats.RecordGenerate(time.Since(start))
	if err != nil {
		c.failSession(ctx, session, fmt.Sprintf("generator (%s): %v", role, err))
		return nil, true, nil
	}

	appendStart := c.now()
	msg, err = c.sequencer.Append(ctx, session, role, draft.Content, draft.Confidence, draft.Citations)
	c.stats.RecordAppend(time.Since(appendStart))
	if err != nil {
		// A cancel that won the race surfaces as ErrNotAppendable; draft
		// validation errors surface as-is. Neither moves the session to
		// Failed and none of them mutate state.
		return nil, false, err
	}

	c.stats.IncMessagesAppended()
	c.logger.Info("message appended",
		"session_id", session.ID, "role", role, "order", msg.Order)
	c.publish(WatchEvent{SessionID: session.ID, Message: msg, State: session.State})
	return msg, false, nil
}

// complete runs the classifier and aggregator and writes the outcome
// atomically with the Debating -> Completed transition.
func (c *Coordinator) complete(ctx context.Context, session *models.Session, messages []models.Message) error {
	start := c.now()
	decision, err := c.classifier.Consensus(ctx, messages)
	c.stats.RecordClassify(time.Since(start))
	if err != nil {
		c.failSession(ctx, session, fmt.Sprintf("classifier: %v", err))
		return nil
	}

	outcome, err := Aggregate(messages, decision)
	if err != nil {
		c.failSession(ctx, session, fmt.Sprintf("aggregate: %v", err))
		return nil
	}

	if err := Complete(session, outcome, c.now()); err != nil {
		return err
	}
	if err := c.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	c.stats.IncSessionsCompleted()
	c.logger.Info("session completed",
		"session_id", session.ID,
		"consensus", outcome.ConsensusReached,
		"confidence", outcome.ConfidenceScore)
	c.finish(session)
	return nil
}

// failSession moves the session to Failed with the collaborator error as
// the recorded reason. The error is logged, not re-thrown: callers observe
// the Failed state on the snapshot.
func (c *Coordinator) failSession(ctx context.Context, session *models.Session, reason string) {
	if err := Fail(session, reason, c.now()); err != nil {
		c.logger.Error("fail transition rejected", "session_id", session.ID, "error", err)
		return
	}
	if err := c.store.UpdateSession(ctx, session); err != nil {
		c.logger.Error("persist failed session", "session_id", session.ID, "error", err)
		return
	}
	c.stats.IncSessionsFailed()
	c.logger.Warn("session failed", "session_id", session.ID, "reason", reason)
	c.finish(session)
}

// RunSession advances the session until it reaches a terminal state.
func (c *Coordinator) RunSession(ctx context.Context, sessionID string) (*models.Session, error) {
	// Bounded by the roster length plus the ingest transitions; anything
	// beyond that means the roster cannot make progress.
	maxSteps := len(c.roster.Turns) + 4
	var session *models.Session
	for i := 0; i < maxSteps; i++ {
		var err error
		session, err = c.Advance(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.State.Terminal() {
			return session, nil
		}
	}
	return session, fmt.Errorf("session %s made no progress after %d steps", sessionID, maxSteps)
}

// Cancel moves the session to Cancelled. Calling it on a session that is
// already terminal is a no-op. An in-flight advance on the same session
// observes the cancellation when its append is rejected post hoc.
func (c *Coordinator) Cancel(ctx context.Context, sessionID string) error {
	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State.Terminal() {
		return nil
	}

	changed, err := Cancel(session, c.now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := c.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	c.stats.IncSessionsCancelled()
	c.logger.Info("session cancelled", "session_id", session.ID)
	c.finish(session)
	return nil
}

// DeleteSession removes a session and its entire message log. Sessions own
// their messages exclusively, so nothing of the debate survives the delete.
func (c *Coordinator) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := c.lockSession(sessionID)
	defer unlock()

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := c.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	c.logger.Info("session deleted", "session_id", session.ID, "state", session.State)
	c.finish(session)

	c.mu.Lock()
	delete(c.locks, sessionID)
	c.mu.Unlock()
	return nil
}

// GetSession returns a snapshot of the session.
func (c *Coordinator) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return c.store.GetSession(ctx, sessionID)
}

// ListSessions returns session snapshots, optionally filtered by state.
func (c *Coordinator) ListSessions(ctx context.Context, state *models.SessionState, limit, offset int) ([]models.Session, error) {
	return c.store.ListSessions(ctx, state, limit, offset)
}

// ListMessages returns the session's messages in order. limit<=0 means all.
func (c *Coordinator) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error) {
	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return c.store.ListMessages(ctx, sessionID, limit, offset)
}

// Watch subscribes to a session's events. The channel receives one event
// per appended message and a final nil-message event for the terminal
// state, after which it is closed. The returned cancel func unsubscribes.
func (c *Coordinator) Watch(sessionID string) (<-chan WatchEvent, func()) {
	ch := make(chan WatchEvent, 16)

	c.mu.Lock()
	c.watchers[sessionID] = append(c.watchers[sessionID], ch)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		chans := c.watchers[sessionID]
		for i, w := range chans {
			if w == ch {
				c.watchers[sessionID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// publish fans an event out to the session's watchers. Slow watchers drop
// events rather than blocking the coordinator.
func (c *Coordinator) publish(ev WatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// finish announces the terminal state to watchers and closes them.
func (c *Coordinator) finish(session *models.Session) {
	ev := WatchEvent{SessionID: session.ID, State: session.State}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers[session.ID] {
		select {
		case ch <- ev:
		default:
		}
		close(ch)
	}
	delete(c.watchers, session.ID)
}

// Signals exposes signal registry reads and writes for the surrounding API.

// UpsertSignal stores or refreshes a signal registry entry.
func (c *Coordinator) UpsertSignal(ctx context.Context, signal *models.Signal) error {
	if _, _, err := models.ParseSignalID(signal.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCitation, err)
	}
	signal.UpdatedAt = c.now().UTC()
	return c.store.UpsertSignal(ctx, signal)
}

// GetSignal fetches a signal registry entry.
func (c *Coordinator) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	sig, err := c.store.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, fmt.Errorf("%w: signal %s", ErrNotFound, id)
	}
	return sig, nil
}

// ListSignals lists signal registry entries.
func (c *Coordinator) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	return c.store.ListSignals(ctx, limit)
}

// Stats returns a snapshot of the runtime metrics.
func (c *Coordinator) Stats() metrics.Snapshot {
	return c.stats.Snapshot()
}

// IsRetryable reports whether the error indicates a lost race that a caller
// may retry after re-fetching session state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNotAppendable) || errors.Is(err, ErrConflict)
}
