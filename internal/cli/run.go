package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var runWatch bool

var runCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Run a session until it reaches a terminal state",
	Long: `Run drives the debate loop for a session: each step generates the next
agent message in roster order, and once every analyst has spoken and the
orchestrator has summarised, aggregates the outcome.

Examples:
  sigdebate run 0b54c7e1-...
  sigdebate run 0b54c7e1-... --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionToCompletion(cmd.Context(), args[0], runWatch)
	},
}

var advanceCmd = &cobra.Command{
	Use:   "advance <session-id>",
	Short: "Perform a single debate step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := apiClient.Advance(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("advance session: %w", err)
		}
		printSession(session)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "show live progress while the session runs")
}

// runSessionToCompletion runs a session, either with the interactive progress
// UI or by blocking on the run endpoint and printing the outcome.
func runSessionToCompletion(ctx context.Context, id string, watch bool) error {
	if watch {
		return RunSessionProgress(apiClient, id)
	}

	session, err := apiClient.Run(ctx, id)
	if err != nil {
		return fmt.Errorf("run session: %w", err)
	}
	printSession(session)
	return nil
}
