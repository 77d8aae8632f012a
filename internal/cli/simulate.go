package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/sandbox"
)

var (
	simulateActions string
	simulateAction  string
	simulateArgs    string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simulateActions, "actions", "", "Path to action catalog YAML")
	simulateCmd.Flags().StringVar(&simulateAction, "action", "", "Action name to simulate (required)")
	simulateCmd.Flags().StringVar(&simulateArgs, "args", "{}", "Action arguments as JSON")
	simulateCmd.MarkFlagRequired("action")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Dry-run an action and print the predicted outcome",
	Long: "Runs the sandbox prediction for an action without executing it:\n" +
		"whether it would succeed, its estimated cost, and the side\n" +
		"effects it would have.",
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	catalog, err := action.Load(simulateActions)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	act, ok := catalog.Get(simulateAction)
	if !ok {
		return fmt.Errorf("unknown action: %s", simulateAction)
	}

	var callArgs map[string]any
	if err := json.Unmarshal([]byte(simulateArgs), &callArgs); err != nil {
		return fmt.Errorf("invalid --args JSON: %w", err)
	}

	out, _ := json.MarshalIndent(sandbox.Simulate(act, callArgs), "", "  ")
	fmt.Println(string(out))
	return nil
}
