// Package debate implements the agent debate session core: the session
// state machine, message sequencing, the agent roster turn policy, the
// consensus aggregator, and the coordinator that composes them.
package debate

import "errors"

// Sentinel errors for debate operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidContent indicates a malformed content descriptor or empty
	// message body. Not retryable without changing the input.
	ErrInvalidContent = errors.New("invalid content")

	// ErrInvalidTransition indicates an operation not legal for the
	// session's current state. Caller misuse, not retryable as-is.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotAppendable indicates the session state disallows appends,
	// either because it is terminal or because a concurrent cancel won the
	// race. Safe to retry after re-fetching session state.
	ErrNotAppendable = errors.New("session not appendable")

	// ErrInvalidCitation indicates a citation that is neither a known
	// signal identifier nor a well-formed URL.
	ErrInvalidCitation = errors.New("invalid citation")

	// ErrInvalidConfidence indicates a confidence value outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence out of range")

	// ErrNoGenerator indicates the engine runs without an LLM backend and
	// cannot advance sessions.
	ErrNoGenerator = errors.New("no generator configured")

	// ErrConflict indicates a concurrent write lost a race in the backing
	// store. Callers should re-fetch and retry.
	ErrConflict = errors.New("write conflict")
)
