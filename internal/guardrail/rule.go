package guardrail

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML duration strings such as "60s" or "5m". Bare
// integers are read as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return fmt.Errorf("guardrail: parse duration %q: %w", raw, err)
		}
		parsed = time.Duration(secs) * time.Second
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// RuleType selects which check a rule performs.
type RuleType string

const (
	RuleLimit        RuleType = "limit"
	RuleRateLimit    RuleType = "rate_limit"
	RuleConfirmation RuleType = "confirmation"
	RuleReputation   RuleType = "reputation"
	RuleSandbox      RuleType = "sandbox"
	RuleBlacklist    RuleType = "blacklist"
)

var knownTypes = map[RuleType]bool{
	RuleLimit:        true,
	RuleRateLimit:    true,
	RuleConfirmation: true,
	RuleReputation:   true,
	RuleSandbox:      true,
	RuleBlacklist:    true,
}

// RuleConfig carries the per-type settings. Only the fields relevant
// to the rule's type are read; the rest stay zero.
type RuleConfig struct {
	// Actions restricts the rule to the named actions or categories.
	// Empty means the rule applies to every action.
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`

	// limit: ceiling on a numeric argument field.
	Field string  `yaml:"field,omitempty" json:"field,omitempty"`
	Max   float64 `yaml:"max,omitempty" json:"max,omitempty"`

	// rate_limit: action-scoped quota on top of the transport limiter.
	MaxRequests int      `yaml:"max_requests,omitempty" json:"maxRequests,omitempty"`
	Window      Duration `yaml:"window,omitempty" json:"window,omitempty"`

	// reputation: minimum score to proceed.
	MinScore int `yaml:"min_score,omitempty" json:"minScore,omitempty"`

	// blacklist: violation count that auto-blocks the agent.
	MaxViolations int `yaml:"max_violations,omitempty" json:"maxViolations,omitempty"`
}

// Rule is one operator-defined guardrail. Disabled rules stay in the
// set (soft delete) but are skipped at evaluation time.
type Rule struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Type      RuleType   `yaml:"type" json:"type"`
	Priority  int        `yaml:"priority" json:"priority"`
	Enabled   bool       `yaml:"enabled" json:"enabled"`
	Config    RuleConfig `yaml:"config" json:"config"`
	CreatedAt time.Time  `yaml:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time  `yaml:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// appliesTo reports whether the rule covers the given action name or
// category.
func (r Rule) appliesTo(name, category string) bool {
	if len(r.Config.Actions) == 0 {
		return true
	}
	for _, a := range r.Config.Actions {
		if a == name || a == category {
			return true
		}
	}
	return false
}

// LoadRules reads guardrail rules from a YAML file. An empty path or a
// missing file yields no rules (everything allowed by the engine).
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("guardrail: read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule set.
func ParseRules(data []byte) ([]Rule, error) {
	var file struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("guardrail: parse rules: %w", err)
	}
	for i, r := range file.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("guardrail: rule %d has no id", i)
		}
		if !knownTypes[r.Type] {
			return nil, fmt.Errorf("guardrail: rule %s: unknown type %q", r.ID, r.Type)
		}
	}
	return file.Rules, nil
}

// sortRules orders rules by priority (lower evaluates first), then by
// id so evaluation order is deterministic when priorities tie.
func sortRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
