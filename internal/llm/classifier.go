package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
)

// Classifier decides the consensus question through the configured LLM: did
// the risk challenger explicitly reverse or block the financial analyst's
// stance? It implements debate.Classifier.
type Classifier struct {
	model *Model
}

var _ debate.Classifier = (*Classifier)(nil)

// NewClassifier creates an LLM-backed consensus classifier.
func NewClassifier(model *Model) *Classifier {
	return &Classifier{model: model}
}

const classifierSystemPrompt = `You judge analyst debates. You are given the financial analyst's stance and the risk challenger's response.
Answer YES if the risk challenger explicitly reverses or blocks the analyst's stance, NO otherwise.
Answer with a single word: YES or NO.`

// Consensus returns true when the exchange reached consensus, i.e. the risk
// challenger did not block the analyst's stance.
func (c *Classifier) Consensus(ctx context.Context, messages []models.Message) (bool, error) {
	analyst := lastByRole(messages, models.RoleFinancialAnalyst)
	risk := lastByRole(messages, models.RoleRiskChallenger)
	if analyst == nil || risk == nil {
		// Without both voices there is nothing to block; no consensus.
		return false, nil
	}

	userPrompt := fmt.Sprintf("Analyst stance:\n%s\n\nRisk challenger response:\n%s", analyst.Content, risk.Content)
	raw, err := c.model.GenerateWithSystem(ctx, classifierSystemPrompt, userPrompt)
	if err != nil {
		return false, fmt.Errorf("classify consensus: %w", err)
	}

	blocked, err := parseVerdict(raw)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// parseVerdict reads a YES/NO answer, tolerating surrounding prose.
func parseVerdict(raw string) (bool, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, ".!\"' ")
	switch {
	case strings.HasPrefix(s, "YES"):
		return true, nil
	case strings.HasPrefix(s, "NO"):
		return false, nil
	}
	return false, fmt.Errorf("unrecognized verdict: %q", raw)
}

func lastByRole(messages []models.Message, role models.AgentRole) *models.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == role {
			return &messages[i]
		}
	}
	return nil
}
