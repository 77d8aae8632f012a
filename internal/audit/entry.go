package audit

// Call is the flattened request recorded in each audit entry.
type Call struct {
	Method string `json:"method"`
	Action string `json:"action,omitempty"`
}

// Entry is one line in the hash-chained JSONL audit log.
// All fields are structs (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp string `json:"ts"`
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
	Call      Call   `json:"call"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	RuleID    string `json:"rule_id,omitempty"`
	PrevHash  string `json:"prev_hash"`
}

// Decision values recorded per entry.
const (
	DecisionAllow        = "allow"
	DecisionDeny         = "deny"
	DecisionNeedsConfirm = "needs_confirmation"
	DecisionSimulated    = "simulated"
)
