package debate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/signalboard/sigdebate/internal/models"
)

// Sequencer validates and appends messages to a session's log. Order values
// start at 0 and reflect append acceptance order; the store makes order
// assignment and the message write one atomic step, so no order is ever
// left reserved without a row.
type Sequencer struct {
	store  Store
	ledger *Ledger
}

// NewSequencer creates a sequencer over the given store and citation ledger.
func NewSequencer(store Store, ledger *Ledger) *Sequencer {
	return &Sequencer{store: store, ledger: ledger}
}

// Append validates the contribution and persists it with the next order
// value for the session. The caller passes the session it already holds
// under the per-session lock; the store re-checks appendability so a
// cancel that won the race still rejects the write with ErrNotAppendable.
func (q *Sequencer) Append(
	ctx context.Context,
	session *models.Session,
	role models.AgentRole,
	content string,
	confidence *float64,
	citations []models.Citation,
) (*models.Message, error) {
	if !AppendAllowed(session.State) {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotAppendable, session.ID, session.State)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown agent role: %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message content", ErrInvalidContent)
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfidence, *confidence)
	}
	if err := q.ledger.Validate(ctx, citations); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		SessionID:  session.ID,
		Role:       role,
		Content:    content,
		Confidence: confidence,
		Citations:  citations,
	}
	return q.store.AppendMessage(ctx, msg)
}
