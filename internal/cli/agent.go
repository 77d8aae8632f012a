package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/registry"
	"github.com/okhotin/agentgate/internal/repository/sqlite"
)

var (
	agentDB       string
	agentID       string
	agentName     string
	agentProvider string
	agentSecret   string
	agentPerms    []string
)

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentAddCmd, agentListCmd, agentDeactivateCmd)

	agentCmd.PersistentFlags().StringVar(&agentDB, "db", "agentgate.db", "Path to the registry database")

	agentAddCmd.Flags().StringVar(&agentID, "id", "", "Agent identifier (required)")
	agentAddCmd.Flags().StringVar(&agentName, "name", "", "Agent name (required)")
	agentAddCmd.Flags().StringVar(&agentProvider, "provider", "", "Agent provider (required)")
	agentAddCmd.Flags().StringVar(&agentSecret, "secret", "", "Shared secret (required)")
	agentAddCmd.Flags().StringSliceVar(&agentPerms, "permission", []string{"read"}, "Permission grant, repeatable")
	agentAddCmd.MarkFlagRequired("id")
	agentAddCmd.MarkFlagRequired("name")
	agentAddCmd.MarkFlagRequired("provider")
	agentAddCmd.MarkFlagRequired("secret")

	agentDeactivateCmd.Flags().StringVar(&agentID, "id", "", "Agent identifier (required)")
	agentDeactivateCmd.MarkFlagRequired("id")
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage registered agents",
}

var agentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an agent with a hashed secret",
	RunE:  runAgentAdd,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agent identities",
	RunE:  runAgentList,
}

var agentDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate an agent so its credentials stop working",
	RunE:  runAgentDeactivate,
}

func openAgentStore() (*sqlite.DB, context.Context, context.CancelFunc, error) {
	db, err := sqlite.Open(agentDB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open registry database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	return db, ctx, cancel, nil
}

func runAgentAdd(cmd *cobra.Command, args []string) error {
	db, ctx, cancel, err := openAgentStore()
	if err != nil {
		return err
	}
	defer cancel()
	defer db.Close()

	hash, err := registry.HashSecret(agentSecret)
	if err != nil {
		return err
	}
	rec := registry.Record{
		Identity: model.AgentIdentity{
			ID:       agentID,
			Name:     agentName,
			Provider: agentProvider,
			Active:   true,
		},
		SecretHash:  hash,
		Permissions: agentPerms,
	}
	if err := db.Agents().Upsert(ctx, rec); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	fmt.Printf("registered %s (%s/%s) with permissions %v\n",
		agentID, agentProvider, agentName, agentPerms)
	return nil
}

func runAgentList(cmd *cobra.Command, args []string) error {
	db, ctx, cancel, err := openAgentStore()
	if err != nil {
		return err
	}
	defer cancel()
	defer db.Close()

	ids, err := db.Agents().List(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	out, _ := json.MarshalIndent(ids, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runAgentDeactivate(cmd *cobra.Command, args []string) error {
	db, ctx, cancel, err := openAgentStore()
	if err != nil {
		return err
	}
	defer cancel()
	defer db.Close()

	if err := db.Agents().Deactivate(ctx, agentID); err != nil {
		return fmt.Errorf("deactivate agent: %w", err)
	}
	fmt.Printf("deactivated %s\n", agentID)
	return nil
}
