package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/token"
)

var (
	tokenKeyPath  string
	tokenAgentID  string
	tokenName     string
	tokenProvider string
	tokenScopes   []string
	tokenTTL      time.Duration
	tokenValue    string
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd, tokenVerifyCmd)

	tokenCmd.PersistentFlags().StringVar(&tokenKeyPath, "key", "", "Path to HMAC signing key file")

	tokenIssueCmd.Flags().StringVar(&tokenAgentID, "agent-id", "", "Agent identifier (required)")
	tokenIssueCmd.Flags().StringVar(&tokenName, "name", "", "Agent name")
	tokenIssueCmd.Flags().StringVar(&tokenProvider, "provider", "", "Agent provider")
	tokenIssueCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "Scope grant, repeatable")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", token.DefaultTTL, "Token lifetime")
	tokenIssueCmd.MarkFlagRequired("agent-id")

	tokenVerifyCmd.Flags().StringVar(&tokenValue, "token", "", "Token to verify (required)")
	tokenVerifyCmd.MarkFlagRequired("token")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and inspect agent credentials offline",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign a credential for an agent identity",
	Long: "Issues a token directly against the signing key, bypassing the\n" +
		"registry. Useful for bootstrapping and local testing; deployed\n" +
		"agents authenticate through POST /agent/token instead.",
	RunE: runTokenIssue,
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a token and print its claims",
	RunE:  runTokenVerify,
}

func tokenService() (*token.Service, error) {
	key, err := token.LoadSigningKey(tokenKeyPath, false)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	return token.NewService(key, token.WithTTL(tokenTTL))
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	svc, err := tokenService()
	if err != nil {
		return err
	}
	identity := model.AgentIdentity{
		ID:       tokenAgentID,
		Name:     tokenName,
		Provider: tokenProvider,
		Active:   true,
	}
	tok, err := svc.Issue(identity, tokenScopes)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	out, _ := json.MarshalIndent(tok, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runTokenVerify(cmd *cobra.Command, args []string) error {
	svc, err := tokenService()
	if err != nil {
		return err
	}
	claims, err := svc.Verify(tokenValue)
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	out, _ := json.MarshalIndent(map[string]any{
		"agentId":     claims.AgentID,
		"provider":    claims.Provider,
		"permissions": claims.Permissions,
		"scopes":      claims.Scopes,
		"expiresAt":   claims.ExpiresAt.Time,
		"remaining":   svc.Remaining(claims).String(),
	}, "", "  ")
	fmt.Println(string(out))
	return nil
}
