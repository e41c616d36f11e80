package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Cancel a session",
	Long: `Cancel a session. Cancelling a session that already reached a terminal
state is a no-op and reports the existing state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := apiClient.Cancel(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("cancel session: %w", err)
		}
		fmt.Printf("Session %s is %s\n", session.ID, session.State)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its message log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.DeleteSession(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	},
}
