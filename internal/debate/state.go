package debate

import (
	"fmt"
	"time"

	"github.com/signalboard/sigdebate/internal/models"
)

// transitions maps each state to the set of states it may move to.
// Completed, Failed and Cancelled are terminal.
var transitions = map[models.SessionState][]models.SessionState{
	models.StateInitialized: {models.StateProcessing, models.StateCancelled},
	models.StateProcessing:  {models.StateDebating, models.StateFailed, models.StateCancelled},
	models.StateDebating:    {models.StateCompleted, models.StateFailed, models.StateCancelled},
	models.StateCompleted:   {},
	models.StateFailed:      {},
	models.StateCancelled:   {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to models.SessionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AppendAllowed reports whether messages may be appended in the given state.
func AppendAllowed(state models.SessionState) bool {
	return state == models.StateProcessing || state == models.StateDebating
}

// transition moves the session to the target state, stamping CompletedAt on
// entry to a terminal state. All dependent field writes happen on the same
// in-memory session before it is persisted in a single store write, so a
// reader never observes the state without its companion fields.
func transition(s *models.Session, to models.SessionState, now time.Time) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	if to.Terminal() {
		t := now.UTC()
		s.CompletedAt = &t
	}
	return nil
}

// BeginProcessing moves an Initialized session into Processing once its
// content descriptor passes validation.
func BeginProcessing(s *models.Session, now time.Time) error {
	if s.Content.Empty() {
		return fmt.Errorf("%w: descriptor has no body and no url", ErrInvalidContent)
	}
	return transition(s, models.StateProcessing, now)
}

// BeginDebating moves a Processing session into Debating.
func BeginDebating(s *models.Session, now time.Time) error {
	return transition(s, models.StateDebating, now)
}

// Complete moves a Debating session into Completed and writes the outcome.
// The outcome and completion timestamp land in the same store write as the
// state change.
func Complete(s *models.Session, outcome models.Outcome, now time.Time) error {
	if err := transition(s, models.StateCompleted, now); err != nil {
		return err
	}
	out := outcome
	s.Outcome = &out
	return nil
}

// Fail moves a Processing or Debating session into Failed, recording the
// collaborator error as a free-text reason. Outcome fields stay unset.
func Fail(s *models.Session, reason string, now time.Time) error {
	if err := transition(s, models.StateFailed, now); err != nil {
		return err
	}
	s.FailureReason = reason
	return nil
}

// Cancel moves a non-terminal session into Cancelled. Cancelling an already
// cancelled session is a no-op, not an error; changed reports whether the
// session actually moved.
func Cancel(s *models.Session, now time.Time) (changed bool, err error) {
	if s.State == models.StateCancelled {
		return false, nil
	}
	if err := transition(s, models.StateCancelled, now); err != nil {
		return false, err
	}
	return true, nil
}
