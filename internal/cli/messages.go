package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	messagesLimit  int
	messagesOffset int
)

var messagesCmd = &cobra.Command{
	Use:   "messages <session-id>",
	Short: "Show the message log of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		messages, err := apiClient.ListMessages(cmd.Context(), args[0], messagesLimit, messagesOffset)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		if len(messages) == 0 {
			fmt.Println("No messages yet.")
			return nil
		}
		for i := range messages {
			printMessage(&messages[i])
		}
		return nil
	},
}

func init() {
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 0, "max results (0 = all)")
	messagesCmd.Flags().IntVar(&messagesOffset, "offset", 0, "results offset")
}
