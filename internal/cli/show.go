package cli

import (
	"fmt"

	"github.com/signalboard/sigdebate/internal/models"
	"github.com/spf13/cobra"
)

var (
	listState  string
	listLimit  int
	listOffset int
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := apiClient.GetSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		printSession(session)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List sessions, most recent first.

Examples:
  sigdebate list
  sigdebate list --state completed
  sigdebate list --state debating -n 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := apiClient.ListSessions(cmd.Context(), listState, listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}
		for i := range sessions {
			s := &sessions[i]
			line := fmt.Sprintf("%s  %-11s  %s  %s",
				s.ID, s.State, s.StartedAt.Format("2006-01-02 15:04:05"), s.Content.Type)
			if symbol := s.Content.Metadata[models.MetaKeySymbol]; symbol != "" {
				line += "  " + symbol
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "max results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "results offset")
}
