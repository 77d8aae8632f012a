package model

import "time"

// AgentIdentity describes a registered machine caller. Identity fields
// are immutable after registration except Capabilities; agents are
// deactivated, never deleted.
type AgentIdentity struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Provider     string   `json:"provider" yaml:"provider"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Active       bool     `json:"active" yaml:"active"`
}

// AgentToken is the issued credential returned to a caller. The Token
// string is opaque to the caller; only the claims inside it are
// authoritative for authorization.
type AgentToken struct {
	Token       string    `json:"token"`
	AgentID     string    `json:"agentId"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Permissions []string  `json:"permissions"`
	Scopes      []string  `json:"scopes"`
}

// ReputationRecord summarizes an agent's trust history. Score is an
// integer in [0,1000]; Level is derived from Score by fixed thresholds
// (see the reputation package).
type ReputationRecord struct {
	AgentID string `json:"agentId"`
	Score   int    `json:"score"`
	Level   string `json:"level"`
}
