package debate

import (
	"testing"
	"time"

	"github.com/signalboard/sigdebate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(state models.SessionState) *models.Session {
	return &models.Session{
		ID:        "sess-1",
		Content:   models.ContentDescriptor{Type: models.ContentDirectText, Body: "NVDA beat estimates"},
		State:     state,
		StartedAt: time.Now().UTC(),
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from models.SessionState
		to   models.SessionState
		want bool
	}{
		{models.StateInitialized, models.StateProcessing, true},
		{models.StateInitialized, models.StateCancelled, true},
		{models.StateInitialized, models.StateDebating, false},
		{models.StateInitialized, models.StateCompleted, false},
		{models.StateProcessing, models.StateDebating, true},
		{models.StateProcessing, models.StateFailed, true},
		{models.StateProcessing, models.StateCancelled, true},
		{models.StateProcessing, models.StateCompleted, false},
		{models.StateDebating, models.StateCompleted, true},
		{models.StateDebating, models.StateFailed, true},
		{models.StateDebating, models.StateCancelled, true},
		{models.StateDebating, models.StateProcessing, false},
		{models.StateCompleted, models.StateCancelled, false},
		{models.StateFailed, models.StateProcessing, false},
		{models.StateCancelled, models.StateCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAppendAllowed(t *testing.T) {
	assert.False(t, AppendAllowed(models.StateInitialized))
	assert.True(t, AppendAllowed(models.StateProcessing))
	assert.True(t, AppendAllowed(models.StateDebating))
	assert.False(t, AppendAllowed(models.StateCompleted))
	assert.False(t, AppendAllowed(models.StateFailed))
	assert.False(t, AppendAllowed(models.StateCancelled))
}

func TestBeginProcessingRejectsEmptyContent(t *testing.T) {
	s := testSession(models.StateInitialized)
	s.Content = models.ContentDescriptor{Type: models.ContentDirectText}

	err := BeginProcessing(s, time.Now())
	require.ErrorIs(t, err, ErrInvalidContent)
	assert.Equal(t, models.StateInitialized, s.State, "session must not move on invalid content")
}

func TestLifecycleHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s := testSession(models.StateInitialized)

	require.NoError(t, BeginProcessing(s, now))
	assert.Equal(t, models.StateProcessing, s.State)
	assert.Nil(t, s.CompletedAt)

	require.NoError(t, BeginDebating(s, now))
	assert.Equal(t, models.StateDebating, s.State)
	assert.Nil(t, s.CompletedAt)

	rec := "Buy"
	score := 0.7
	require.NoError(t, Complete(s, models.Outcome{ConsensusReached: true, FinalRecommendation: &rec, ConfidenceScore: &score}, now))
	assert.Equal(t, models.StateCompleted, s.State)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, now, *s.CompletedAt)
	require.NotNil(t, s.Outcome)
	assert.True(t, s.Outcome.ConsensusReached)
}

func TestFailRecordsReason(t *testing.T) {
	now := time.Now()
	s := testSession(models.StateDebating)

	require.NoError(t, Fail(s, "generator timeout", now))
	assert.Equal(t, models.StateFailed, s.State)
	assert.Equal(t, "generator timeout", s.FailureReason)
	assert.NotNil(t, s.CompletedAt)
	assert.Nil(t, s.Outcome, "failed sessions carry no outcome")
}

func TestFailFromInitializedRejected(t *testing.T) {
	s := testSession(models.StateInitialized)
	err := Fail(s, "boom", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelIdempotent(t *testing.T) {
	now := time.Now()
	s := testSession(models.StateDebating)

	changed, err := Cancel(s, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StateCancelled, s.State)
	require.NotNil(t, s.CompletedAt)
	first := *s.CompletedAt

	changed, err = Cancel(s, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *s.CompletedAt, "repeat cancel must not restamp")
}

func TestCancelCompletedRejected(t *testing.T) {
	s := testSession(models.StateCompleted)
	changed, err := Cancel(s, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, changed)
}
