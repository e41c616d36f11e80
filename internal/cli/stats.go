package cli

import (
	"fmt"

	"github.com/signalboard/sigdebate/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := apiClient.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}

		fmt.Printf("Uptime: %.0fs\n\n", stats.UptimeSeconds)
		fmt.Println("Sessions:")
		fmt.Printf("  created:    %d\n", stats.Counters.SessionsCreated)
		fmt.Printf("  completed:  %d\n", stats.Counters.SessionsCompleted)
		fmt.Printf("  failed:     %d\n", stats.Counters.SessionsFailed)
		fmt.Printf("  cancelled:  %d\n", stats.Counters.SessionsCancelled)
		fmt.Printf("\nMessages appended: %d\n", stats.Counters.MessagesAppended)

		printOperation("generate", stats.Generate)
		printOperation("classify", stats.Classify)
		printOperation("append", stats.Append)
		return nil
	},
}

func printOperation(name string, op *metrics.OperationSnapshot) {
	if op == nil || op.Count == 0 {
		return
	}
	fmt.Printf("\n%s:\n", name)
	fmt.Printf("  count:  %d\n", op.Count)
	fmt.Printf("  avg:    %.1fms\n", op.AvgTimeMs)
	fmt.Printf("  min:    %dms\n", op.MinTimeMs)
	fmt.Printf("  max:    %dms\n", op.MaxTimeMs)
}
