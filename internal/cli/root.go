package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentgate",
	Short: "Access-control gateway for autonomous agents",
	Long: "Mediates agent access to a web service: credential issuance,\n" +
		"permission checks, rate limiting, and guardrail evaluation in\n" +
		"front of a JSON-RPC action surface.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
