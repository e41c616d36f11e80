package cli

import (
	"fmt"

	"github.com/signalboard/sigdebate/internal/models"
	"github.com/spf13/cobra"
)

var (
	signalsLimit   int
	signalStrength float64
	signalSummary  string
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List or register signals",
	Long: `List signals in the registry, or register one with the set subcommand.

Examples:
  sigdebate signals
  sigdebate signals set earnings NVDA --strength 0.8 --summary "Q2 beat"`,
	RunE: runListSignals,
}

var signalsSetCmd = &cobra.Command{
	Use:   "set <kind> <symbol>",
	Short: "Create or update a signal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, symbol := args[0], args[1]
		signal, err := apiClient.UpsertSignal(cmd.Context(), models.Signal{
			ID:       models.SignalID(kind, symbol),
			Symbol:   symbol,
			Kind:     kind,
			Strength: signalStrength,
			Summary:  signalSummary,
		})
		if err != nil {
			return fmt.Errorf("set signal: %w", err)
		}
		fmt.Printf("Stored %s (strength %.2f)\n", signal.ID, signal.Strength)
		return nil
	},
}

func init() {
	signalsCmd.Flags().IntVarP(&signalsLimit, "limit", "n", 100, "max results")
	signalsSetCmd.Flags().Float64Var(&signalStrength, "strength", 0, "signal strength in [-1, 1]")
	signalsSetCmd.Flags().StringVar(&signalSummary, "summary", "", "short signal summary")
	signalsCmd.AddCommand(signalsSetCmd)
}

func runListSignals(cmd *cobra.Command, args []string) error {
	signals, err := apiClient.ListSignals(cmd.Context(), signalsLimit)
	if err != nil {
		return fmt.Errorf("list signals: %w", err)
	}
	if len(signals) == 0 {
		fmt.Println("No signals registered.")
		return nil
	}
	for _, s := range signals {
		fmt.Printf("%-40s  %+.2f  %s\n", s.ID, s.Strength, s.Summary)
	}
	return nil
}
