package debate

import (
	"context"
	"testing"
	"time"

	"github.com/signalboard/sigdebate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore captures the appended message without persistence.
type recordingStore struct {
	Store
	appended *models.Message
}

func (s *recordingStore) AppendMessage(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.appended = msg
	out := *msg
	out.Order = 0
	out.CreatedAt = time.Now().UTC()
	return &out, nil
}

func TestSequencerAppendValidation(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	seq := NewSequencer(store, NewLedger(mapResolver{"sig:earnings:NVDA": true}))
	session := testSession(models.StateDebating)

	tests := []struct {
		name       string
		state      models.SessionState
		role       models.AgentRole
		content    string
		confidence *float64
		citations  []models.Citation
		wantErr    error
	}{
		{
			name:    "not appendable before processing",
			state:   models.StateInitialized,
			role:    models.RoleFinancialAnalyst,
			content: "x",
			wantErr: ErrNotAppendable,
		},
		{
			name:    "not appendable after cancel",
			state:   models.StateCancelled,
			role:    models.RoleFinancialAnalyst,
			content: "x",
			wantErr: ErrNotAppendable,
		},
		{
			name:    "empty content",
			state:   models.StateDebating,
			role:    models.RoleFinancialAnalyst,
			content: "   ",
			wantErr: ErrInvalidContent,
		},
		{
			name:       "confidence above one",
			state:      models.StateDebating,
			role:       models.RoleFinancialAnalyst,
			content:    "x",
			confidence: fp(1.2),
			wantErr:    ErrInvalidConfidence,
		},
		{
			name:       "negative confidence",
			state:      models.StateDebating,
			role:       models.RoleRiskChallenger,
			content:    "x",
			confidence: fp(-0.1),
			wantErr:    ErrInvalidConfidence,
		},
		{
			name:      "unknown citation",
			state:     models.StateDebating,
			role:      models.RoleMarketContext,
			content:   "x",
			citations: []models.Citation{{Kind: models.CitationSignal, Value: "sig:earnings:TSLA"}},
			wantErr:   ErrInvalidCitation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session.State = tt.state
			_, err := seq.Append(ctx, session, tt.role, tt.content, tt.confidence, tt.citations)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSequencerAppendUnknownRole(t *testing.T) {
	seq := NewSequencer(&recordingStore{}, NewLedger(nil))
	session := testSession(models.StateDebating)

	_, err := seq.Append(context.Background(), session, models.AgentRole("day_trader"), "x", nil, nil)
	require.Error(t, err)
}

func TestSequencerAppendBuildsMessage(t *testing.T) {
	store := &recordingStore{}
	seq := NewSequencer(store, NewLedger(mapResolver{"sig:earnings:NVDA": true}))
	session := testSession(models.StateProcessing)

	msg, err := seq.Append(context.Background(), session, models.RoleFinancialAnalyst,
		"Bullish.", fp(0.8), []models.Citation{{Kind: models.CitationSignal, Value: "sig:earnings:NVDA"}})
	require.NoError(t, err)

	require.NotNil(t, store.appended)
	assert.NotEmpty(t, store.appended.ID)
	assert.Equal(t, session.ID, store.appended.SessionID)
	assert.Equal(t, models.RoleFinancialAnalyst, msg.Role)
	assert.Equal(t, "Bullish.", msg.Content)
	require.NotNil(t, msg.Confidence)
	assert.InDelta(t, 0.8, *msg.Confidence, 1e-9)
}

func TestSequencerBoundaryConfidence(t *testing.T) {
	store := &recordingStore{}
	seq := NewSequencer(store, NewLedger(nil))
	session := testSession(models.StateDebating)

	for _, v := range []float64{0, 1} {
		_, err := seq.Append(context.Background(), session, models.RoleMarketContext, "x", fp(v), nil)
		require.NoError(t, err, "confidence %v is inside the closed interval", v)
	}
}
