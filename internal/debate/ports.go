package debate

import (
	"context"

	"github.com/signalboard/sigdebate/internal/models"
)

// Store is the persistence port the debate core depends on. Implementations
// must make AppendMessage atomic: the order assignment and the message write
// are one step, and the append is rejected with ErrNotAppendable once the
// session has left Processing/Debating. Session updates must write the state
// and its dependent fields (outcome, completed_at) in a single operation.
type Store interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, state *models.SessionState, limit, offset int) ([]models.Session, error)
	UpdateSession(ctx context.Context, session *models.Session) error
	// DeleteSession removes the session and, through exclusive ownership,
	// every message it contains.
	DeleteSession(ctx context.Context, id string) error

	// AppendMessage assigns msg.Order and msg.CreatedAt and persists the
	// message, all under the session's serialization discipline.
	AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, error)

	UpsertSignal(ctx context.Context, signal *models.Signal) error
	GetSignal(ctx context.Context, id string) (*models.Signal, error)
	ListSignals(ctx context.Context, limit int) ([]models.Signal, error)
	HasSignal(ctx context.Context, id string) (bool, error)
}

// Draft is a candidate message produced by the external generator. The core
// treats it as an opaque text+metadata artifact; it is validated, never
// interpreted.
type Draft struct {
	Content    string
	Confidence *float64
	Citations  []models.Citation
}

// Generator produces one agent contribution given the session content, the
// role whose turn it is, and the prior message log.
type Generator interface {
	Generate(ctx context.Context, session *models.Session, role models.AgentRole, prior []models.Message) (Draft, error)
}

// Classifier decides whether the finished exchange reached consensus, i.e.
// whether the risk challenger blocked the analyst's stance. The aggregator
// consumes the boolean rather than inferring it, so it stays deterministic.
type Classifier interface {
	Consensus(ctx context.Context, messages []models.Message) (bool, error)
}

// StaticClassifier always returns a fixed decision. Useful for offline runs
// and tests.
type StaticClassifier bool

// Consensus implements Classifier.
func (c StaticClassifier) Consensus(context.Context, []models.Message) (bool, error) {
	return bool(c), nil
}

// ContentValidator decides whether a content descriptor is acceptable at
// session creation. Returning an error wrapping ErrInvalidContent rejects
// the creation without persisting anything.
type ContentValidator func(content models.ContentDescriptor) error

// DefaultContentValidator rejects descriptors with neither body nor URL.
func DefaultContentValidator(content models.ContentDescriptor) error {
	if content.Empty() {
		return ErrInvalidContent
	}
	return nil
}
