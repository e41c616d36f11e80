package debate

import (
	"errors"

	"github.com/signalboard/sigdebate/internal/models"
)

// Aggregate computes the outcome of a finished debate from its order-sorted
// message log and the external classifier's consensus decision. It is
// deterministic: same log and decision, same outcome.
//
// The orchestrator's summary is excluded from the numeric aggregation (it
// synthesizes rather than votes) but supplies the recommendation text when
// present. Messages without a stated confidence are excluded from the mean,
// not treated as zero; if no message states a confidence the score is nil.
func Aggregate(messages []models.Message, consensusDecision bool) (models.Outcome, error) {
	if len(messages) == 0 {
		return models.Outcome{}, errors.New("empty message log")
	}

	// Degenerate roster: a single message never constitutes consensus and
	// carries its own confidence through unchanged.
	if len(messages) == 1 {
		return models.Outcome{
			ConsensusReached:    false,
			FinalRecommendation: recommendation(messages),
			ConfidenceScore:     copyFloat(messages[0].Confidence),
		}, nil
	}

	var sum float64
	var n int
	for _, m := range messages {
		if m.Role == models.RoleOrchestrator || m.Confidence == nil {
			continue
		}
		sum += *m.Confidence
		n++
	}
	var score *float64
	if n > 0 {
		mean := sum / float64(n)
		score = &mean
	}

	return models.Outcome{
		ConsensusReached:    consensusDecision,
		FinalRecommendation: recommendation(messages),
		ConfidenceScore:     score,
	}, nil
}

// recommendation picks the final recommendation text: the last non-empty
// orchestrator summary, else the highest-confidence message's content, else
// nil. Ties on confidence go to the earlier message.
func recommendation(messages []models.Message) *string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == models.RoleOrchestrator && m.Content != "" {
			text := m.Content
			return &text
		}
	}

	var best *models.Message
	for i := range messages {
		m := &messages[i]
		if m.Confidence == nil {
			continue
		}
		if best == nil || *m.Confidence > *best.Confidence {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	text := best.Content
	return &text
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
