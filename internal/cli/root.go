// Package cli provides the command-line interface for sigdebate.
package cli

import (
	"fmt"
	"os"

	"github.com/signalboard/sigdebate/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// API client, created in PersistentPreRun
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sigdebate",
	Short: "Multi-agent debate sessions over financial signals",
	Long: `Sigdebate drives adversarial debate sessions between specialised
agents (financial analyst, market context, risk challenger) over a piece
of financial content, and aggregates their positions into a consensus
recommendation.

The CLI talks to a running sigdebate-server instance.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server URL (default SIGDEBATE_SERVER_URL or http://localhost:8486)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(statsCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
