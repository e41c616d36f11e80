package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/signalboard/sigdebate/internal/debate"
	"github.com/signalboard/sigdebate/internal/models"
)

// Generator produces agent contributions through the configured LLM. It
// implements debate.Generator.
type Generator struct {
	model  *Model
	roster *debate.Roster
}

var _ debate.Generator = (*Generator)(nil)

// NewGenerator creates a message generator using the roster's persona
// prompts.
func NewGenerator(model *Model, roster *debate.Roster) *Generator {
	if roster == nil {
		roster = debate.DefaultRoster()
	}
	return &Generator{model: model, roster: roster}
}

const draftFormatInstructions = `Respond with a single JSON object and nothing else:
{
  "content": "<your contribution, one short paragraph>",
  "confidence": <number between 0.0 and 1.0, or null if you will not state one>,
  "citations": ["sig:<type>:<symbol> or https://... URLs backing your claims"]
}`

// Generate asks the LLM for the role's contribution to the debate.
func (g *Generator) Generate(ctx context.Context, session *models.Session, role models.AgentRole, prior []models.Message) (debate.Draft, error) {
	systemPrompt := g.roster.Prompt(role) + "\n\n" + draftFormatInstructions

	var sb strings.Builder
	sb.WriteString("Content under debate (")
	sb.WriteString(string(session.Content.Type))
	sb.WriteString("):\n")
	if session.Content.Body != "" {
		sb.WriteString(session.Content.Body)
		sb.WriteString("\n")
	}
	if session.Content.URL != "" {
		sb.WriteString("Source URL: " + session.Content.URL + "\n")
	}
	if symbol, ok := session.Content.Metadata[models.MetaKeySymbol]; ok {
		sb.WriteString("Symbol: " + symbol + "\n")
	}
	if len(prior) > 0 {
		sb.WriteString("\nDebate so far:\n")
		for _, m := range prior {
			fmt.Fprintf(&sb, "[%d] %s: %s\n", m.Order, m.Role, m.Content)
		}
	}
	sb.WriteString("\nIt is your turn.")

	raw, err := g.model.GenerateWithSystem(ctx, systemPrompt, sb.String())
	if err != nil {
		return debate.Draft{}, fmt.Errorf("generate %s message: %w", role, err)
	}

	draft, err := parseDraft(raw)
	if err != nil {
		return debate.Draft{}, fmt.Errorf("parse %s response: %w", role, err)
	}
	return draft, nil
}

// draftPayload is the JSON shape the model is instructed to produce.
type draftPayload struct {
	Content    string   `json:"content"`
	Confidence *float64 `json:"confidence"`
	Citations  []string `json:"citations"`
}

// parseDraft decodes the model output into a draft. Models routinely wrap
// JSON in markdown fences or prose; stripCodeFence recovers the object.
func parseDraft(raw string) (debate.Draft, error) {
	cleaned := stripCodeFence(raw)

	var payload draftPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		// Fall back to treating the whole response as plain content.
		text := strings.TrimSpace(raw)
		if text == "" {
			return debate.Draft{}, fmt.Errorf("empty response")
		}
		return debate.Draft{Content: text}, nil
	}
	if strings.TrimSpace(payload.Content) == "" {
		return debate.Draft{}, fmt.Errorf("response has no content field")
	}

	citations := make([]models.Citation, 0, len(payload.Citations))
	for _, raw := range payload.Citations {
		c, err := debate.ParseCitation(raw)
		if err != nil {
			return debate.Draft{}, err
		}
		citations = append(citations, c)
	}

	return debate.Draft{
		Content:    strings.TrimSpace(payload.Content),
		Confidence: payload.Confidence,
		Citations:  citations,
	}, nil
}

// stripCodeFence extracts the JSON body from a fenced or prose-wrapped
// model response.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	// Trim prose around the outermost object.
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
