package cli

import (
	"fmt"
	"strings"

	"github.com/signalboard/sigdebate/internal/models"
)

// printSession writes a human-readable session summary to stdout.
func printSession(s *models.Session) {
	fmt.Printf("Session:  %s\n", s.ID)
	fmt.Printf("State:    %s\n", s.State)
	fmt.Printf("Content:  %s", s.Content.Type)
	if symbol := s.Content.Metadata[models.MetaKeySymbol]; symbol != "" {
		fmt.Printf(" (%s)", symbol)
	}
	fmt.Println()
	if s.Content.URL != "" {
		fmt.Printf("URL:      %s\n", s.Content.URL)
	}
	if s.OwnerID != nil {
		fmt.Printf("Owner:    %s\n", *s.OwnerID)
	}
	fmt.Printf("Started:  %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	if s.CompletedAt != nil {
		fmt.Printf("Finished: %s\n", s.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if s.FailureReason != "" {
		fmt.Printf("Failure:  %s\n", s.FailureReason)
	}
	if s.Outcome != nil {
		fmt.Println("\nOutcome:")
		fmt.Printf("  consensus:      %v\n", s.Outcome.ConsensusReached)
		if s.Outcome.FinalRecommendation != nil {
			fmt.Printf("  recommendation: %s\n", *s.Outcome.FinalRecommendation)
		}
		if s.Outcome.ConfidenceScore != nil {
			fmt.Printf("  confidence:     %.2f\n", *s.Outcome.ConfidenceScore)
		}
	}
}

// printMessage writes a single debate message to stdout.
func printMessage(m *models.Message) {
	header := fmt.Sprintf("[%d] %s", m.Order, m.Role)
	if m.Confidence != nil {
		header += fmt.Sprintf(" (confidence %.2f)", *m.Confidence)
	}
	fmt.Println(header)
	fmt.Println(indent(m.Content, "    "))
	if len(m.Citations) > 0 {
		cites := make([]string, len(m.Citations))
		for i, c := range m.Citations {
			cites[i] = c.Value
		}
		fmt.Printf("    cites: %s\n", strings.Join(cites, ", "))
	}
	fmt.Println()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
