package alert

// WebhookConfig defines a webhook alert destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["deny", "degraded", "auto_block"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
	Action    string `json:"action"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
	RuleID    string `json:"rule_id,omitempty"`
	Score     int    `json:"score"`
	Type      string `json:"type,omitempty"` // "auto_block", "degraded" etc.
}
