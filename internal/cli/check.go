package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/guardrail"
	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/ratelimit"
)

var (
	checkRules     string
	checkActions   string
	checkAction    string
	checkArgs      string
	checkAgent     string
	checkScore     int
	checkConfirmed bool
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkRules, "rules", "", "Path to guardrail rules YAML")
	checkCmd.Flags().StringVar(&checkActions, "actions", "", "Path to action catalog YAML")
	checkCmd.Flags().StringVar(&checkAction, "action", "", "Action name to evaluate (required)")
	checkCmd.Flags().StringVar(&checkArgs, "args", "{}", "Action arguments as JSON")
	checkCmd.Flags().StringVar(&checkAgent, "agent", "cli-check", "Agent identity to evaluate as")
	checkCmd.Flags().IntVar(&checkScore, "score", 100, "Reputation score to evaluate with")
	checkCmd.Flags().BoolVar(&checkConfirmed, "confirmed", false, "Treat the call as confirmed")
	checkCmd.MarkFlagRequired("action")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate guardrail rules against an action offline",
	Long: "Loads the rule and action files, evaluates a single call through\n" +
		"the guardrail engine, and prints the decision.\n\n" +
		"Exit code 0 if allowed, 1 if denied.\n" +
		"Use in CI to validate rule edits before deploying them.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	catalog, err := action.Load(checkActions)
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	rules, err := guardrail.LoadRules(checkRules)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	act, ok := catalog.Get(checkAction)
	if !ok {
		return fmt.Errorf("unknown action: %s", checkAction)
	}

	var callArgs map[string]any
	if err := json.Unmarshal([]byte(checkArgs), &callArgs); err != nil {
		return fmt.Errorf("invalid --args JSON: %w", err)
	}

	engine := guardrail.NewEngine(rules, ratelimit.NewMemoryStore())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	decision := engine.Evaluate(ctx, act, guardrail.Context{
		AgentID:    checkAgent,
		Reputation: model.ReputationRecord{AgentID: checkAgent, Score: checkScore},
		Arguments:  callArgs,
		Confirmed:  checkConfirmed,
	})

	out, _ := json.MarshalIndent(decision, "", "  ")
	fmt.Println(string(out))

	if !decision.Allow {
		os.Exit(1)
	}
	return nil
}
