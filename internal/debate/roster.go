package debate

import (
	"fmt"
	"os"

	"github.com/signalboard/sigdebate/internal/models"
	"gopkg.in/yaml.v3"
)

// Roster is the fixed turn-order policy: an ordered list of analyst roles
// with the orchestrator posting last to summarize. The policy is advisory
// to the coordinator; satisfaction is decidable from the message log alone.
type Roster struct {
	// Turns is the full ordered turn sequence, orchestrator last.
	Turns []models.AgentRole
	// Prompts holds the persona prompt used when generating a message for
	// each role.
	Prompts map[models.AgentRole]string
}

// analystOrder is the required role order of a single debate round.
var analystOrder = []models.AgentRole{
	models.RoleFinancialAnalyst,
	models.RoleMarketContext,
	models.RoleRiskChallenger,
}

var defaultPrompts = map[models.AgentRole]string{
	models.RoleFinancialAnalyst: "You are a financial analyst. Assess the fundamentals in the content and state a clear bullish, bearish or neutral stance with a confidence level.",
	models.RoleMarketContext:    "You are a market context analyst. Place the content in the current macro and sector environment and state how it shifts the picture, with a confidence level.",
	models.RoleRiskChallenger:   "You are a risk challenger. Stress-test the prior analysts' stance. Call out anything that would reverse or block their conclusion, with a confidence level.",
	models.RoleOrchestrator:     "You are the debate orchestrator. Summarize the analysts' exchange into a single, direct recommendation.",
}

// DefaultRoster returns one analyst round followed by the orchestrator.
func DefaultRoster() *Roster {
	return NewRoster(1)
}

// NewRoster builds a roster with the given number of analyst rounds.
// Rounds below one are clamped to one.
func NewRoster(rounds int) *Roster {
	if rounds < 1 {
		rounds = 1
	}
	turns := make([]models.AgentRole, 0, rounds*len(analystOrder)+1)
	for i := 0; i < rounds; i++ {
		turns = append(turns, analystOrder...)
	}
	turns = append(turns, models.RoleOrchestrator)

	prompts := make(map[models.AgentRole]string, len(defaultPrompts))
	for role, prompt := range defaultPrompts {
		prompts[role] = prompt
	}
	return &Roster{Turns: turns, Prompts: prompts}
}

// rosterFile is the YAML shape of a roster definition file.
type rosterFile struct {
	Rounds  int               `yaml:"rounds"`
	Prompts map[string]string `yaml:"prompts"`
}

// LoadRoster reads a roster definition from a YAML file. Prompts override
// the defaults per-role; unknown roles are rejected.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}

	roster := NewRoster(file.Rounds)
	for name, prompt := range file.Prompts {
		role, err := models.ParseAgentRole(name)
		if err != nil {
			return nil, fmt.Errorf("roster file: %w", err)
		}
		roster.Prompts[role] = prompt
	}
	return roster, nil
}

// Satisfied reports whether the roster is done: every required role has
// posted at least once and the last message came from the orchestrator.
func (r *Roster) Satisfied(messages []models.Message) bool {
	if len(messages) == 0 {
		return false
	}
	seen := make(map[models.AgentRole]bool, 4)
	for _, m := range messages {
		seen[m.Role] = true
	}
	for _, role := range analystOrder {
		if !seen[role] {
			return false
		}
	}
	return messages[len(messages)-1].Role == models.RoleOrchestrator
}

// NextRole returns the role that should post next, or ok=false when the
// roster is satisfied. When the log tracks the turn sequence the next turn
// is positional; if the log diverged it falls back to the first required
// role that has not posted yet, then to the orchestrator.
func (r *Roster) NextRole(messages []models.Message) (models.AgentRole, bool) {
	if r.Satisfied(messages) {
		return "", false
	}
	if len(messages) < len(r.Turns) {
		return r.Turns[len(messages)], true
	}
	seen := make(map[models.AgentRole]bool, 4)
	for _, m := range messages {
		seen[m.Role] = true
	}
	for _, role := range analystOrder {
		if !seen[role] {
			return role, true
		}
	}
	return models.RoleOrchestrator, true
}

// Prompt returns the persona prompt for a role.
func (r *Roster) Prompt(role models.AgentRole) string {
	if p, ok := r.Prompts[role]; ok {
		return p
	}
	return defaultPrompts[role]
}
