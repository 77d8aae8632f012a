package guardrail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/ratelimit"
)

// Context is what the engine knows about one invocation attempt.
type Context struct {
	AgentID    string
	Reputation model.ReputationRecord
	Arguments  map[string]any
	Confirmed  bool
}

// Decision is the engine's verdict. The first failing rule
// short-circuits evaluation and supplies Reason and RuleID; rule
// configuration details are never leaked into Reason.
type Decision struct {
	Allow                bool   `json:"allow"`
	Reason               string `json:"reason,omitempty"`
	RuleID               string `json:"ruleId,omitempty"`
	RequiresConfirmation bool   `json:"requiresConfirmation"`
	RecommendSandbox     bool   `json:"recommendSandbox"`
}

// Engine evaluates guardrail rules in priority order before an action
// executes. The rate-limit store is injected so action-scoped quotas
// can share a distributed backend with the transport limiter.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule

	store ratelimit.Store

	vmu        sync.Mutex
	violations map[string]int
}

// NewEngine creates an engine over the given rule set. A nil store
// disables rate_limit rules (they pass).
func NewEngine(rules []Rule, store ratelimit.Store) *Engine {
	return &Engine{
		rules:      sortRules(rules),
		store:      store,
		violations: make(map[string]int),
	}
}

// SetRules atomically replaces the rule set. Used by hot reload.
func (e *Engine) SetRules(rules []Rule) {
	e.mu.Lock()
	e.rules = sortRules(rules)
	e.mu.Unlock()
}

// Rules returns a copy of the current rule set in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs the enabled rules against one invocation. The first
// failing rule wins; sandbox rules are advisory and only annotate the
// decision. A denial counts as a violation toward blacklist rules.
func (e *Engine) Evaluate(ctx context.Context, act action.Definition, c Context) Decision {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	d := Decision{Allow: true}
	for _, rule := range rules {
		if !rule.Enabled || !rule.appliesTo(act.Name, act.Category) {
			continue
		}
		switch rule.Type {
		case RuleSandbox:
			// Advisory: recommend a dry run, keep evaluating.
			d.RecommendSandbox = true

		case RuleLimit:
			if v, ok := numericArg(c.Arguments, rule.Config.Field); ok && v > rule.Config.Max {
				return e.deny(c.AgentID, rule,
					fmt.Sprintf("%s exceeds the allowed maximum for %s", rule.Config.Field, act.Name))
			}

		case RuleRateLimit:
			if e.store == nil || rule.Config.MaxRequests <= 0 || rule.Config.Window <= 0 {
				continue
			}
			key := "guardrail:" + rule.ID + ":" + c.AgentID
			count, _, err := e.store.Incr(ctx, key, time.Duration(rule.Config.Window))
			// A store fault must not block the action; the transport
			// limiter still bounds overall abuse.
			if err == nil && count > rule.Config.MaxRequests {
				return e.deny(c.AgentID, rule,
					fmt.Sprintf("action quota exhausted for %s", act.Name))
			}

		case RuleConfirmation:
			// Asking for confirmation is part of the normal two-step
			// flow, not a violation, so it bypasses the counter.
			if !c.Confirmed {
				return Decision{
					Allow:                false,
					Reason:               fmt.Sprintf("%s requires explicit confirmation", act.Name),
					RuleID:               rule.ID,
					RequiresConfirmation: true,
				}
			}

		case RuleReputation:
			if c.Reputation.Score < rule.Config.MinScore {
				return e.deny(c.AgentID, rule,
					fmt.Sprintf("reputation too low for %s", act.Name))
			}

		case RuleBlacklist:
			if rule.Config.MaxViolations > 0 && e.Violations(c.AgentID) >= rule.Config.MaxViolations {
				return e.deny(c.AgentID, rule, "agent is blocked for repeated violations")
			}
		}
	}
	return d
}

// Violations returns the recorded violation count for an agent.
func (e *Engine) Violations(agentID string) int {
	e.vmu.Lock()
	defer e.vmu.Unlock()
	return e.violations[agentID]
}

func (e *Engine) deny(agentID string, rule Rule, reason string) Decision {
	e.vmu.Lock()
	e.violations[agentID]++
	e.vmu.Unlock()
	return Decision{Allow: false, Reason: reason, RuleID: rule.ID}
}

func numericArg(args map[string]any, field string) (float64, bool) {
	if field == "" || args == nil {
		return 0, false
	}
	switch v := args[field].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
