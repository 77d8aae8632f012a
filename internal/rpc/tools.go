package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/alert"
	"github.com/okhotin/agentgate/internal/audit"
	"github.com/okhotin/agentgate/internal/gate"
	"github.com/okhotin/agentgate/internal/guardrail"
	"github.com/okhotin/agentgate/internal/model"
	"github.com/okhotin/agentgate/internal/permission"
	"github.com/okhotin/agentgate/internal/sandbox"
)

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Dispatcher) handleToolsList(ctx context.Context, req Request) *Response {
	granted := callerPermissions(ctx)

	defs := d.catalog.Visible(granted)
	tools := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"inputSchema": def.InputSchema(),
		})
	}
	return result(req.ID, map[string]any{"tools": tools})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req Request) *Response {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "tools/call requires params.name and params.arguments", nil)
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	act, ok := d.catalog.Get(params.Name)
	if !ok || !act.Enabled {
		return errorResponse(req.ID, CodeInvalidParams, "unknown tool",
			map[string]any{"name": params.Name})
	}

	agentID := callerAgentID(ctx)

	if !permission.Has(callerPermissions(ctx), act.RequiredPermission) {
		d.record(ctx, act, audit.DecisionDeny, "insufficient permission", "")
		return errorResponse(req.ID, CodePermissionDenied, "permission denied",
			map[string]any{"required": string(act.RequiredPermission)})
	}

	confirmed, _ := params.Arguments["confirmed"].(bool)
	simulate, _ := params.Arguments["simulate"].(bool)

	var rep model.ReputationRecord
	if d.reputation != nil {
		var degraded bool
		rep, degraded = d.reputation.Get(ctx, agentID)
		if degraded {
			gate.MarkDegraded(ctx)
		}
	}

	var decision guardrail.Decision
	if d.engine != nil {
		decision = d.engine.Evaluate(ctx, act, guardrail.Context{
			AgentID:    agentID,
			Reputation: rep,
			Arguments:  params.Arguments,
			Confirmed:  confirmed,
		})
	} else {
		decision = guardrail.Decision{Allow: true}
	}

	if !decision.Allow && !(simulate && decision.RequiresConfirmation) {
		if decision.RequiresConfirmation {
			d.record(ctx, act, audit.DecisionNeedsConfirm, decision.Reason, decision.RuleID)
			return result(req.ID, map[string]any{
				"confirmationRequired": true,
				"action":               act.Name,
				"message":              decision.Reason,
			})
		}
		d.record(ctx, act, audit.DecisionDeny, decision.Reason, decision.RuleID)
		d.notify(ctx, act, rep, decision)
		return errorResponse(req.ID, CodeGuardrailDenied, decision.Reason, nil)
	}

	// Dry-run path: preview cost and side effects without committing
	// anything. Confirmation is not required for a preview.
	if simulate {
		d.record(ctx, act, audit.DecisionSimulated, "", "")
		return result(req.ID, map[string]any{
			"simulation": sandbox.Simulate(act, params.Arguments),
		})
	}

	// Dispatcher-level confirmation gate: no side effect without an
	// explicit confirmed flag.
	if act.ConfirmationRequired && !confirmed {
		d.record(ctx, act, audit.DecisionNeedsConfirm, "confirmation required", "")
		return result(req.ID, map[string]any{
			"confirmationRequired": true,
			"action":               act.Name,
			"message":              fmt.Sprintf("action %q requires confirmation; retry with arguments.confirmed=true", act.Name),
		})
	}

	out, err := d.executor.Execute(ctx, act, params.Arguments)
	if err != nil {
		d.logger.Error("tool execution failed",
			zap.String("tool", act.Name),
			zap.String("agent_id", agentID),
			zap.Error(err))
		return errorResponse(req.ID, CodeInternalError, "tool execution failed", nil)
	}

	d.record(ctx, act, audit.DecisionAllow, "", "")

	callResult := map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": renderText(out)},
		},
	}
	if decision.RecommendSandbox {
		callResult["sandboxRecommended"] = true
	}
	// Reputation substitution must be visible to the caller, not a
	// silent downgrade.
	if info, ok := gate.FromContext(ctx); ok && info.Degraded {
		callResult["degraded"] = true
	}
	return result(req.ID, callResult)
}

// record reports a decision to the hook and the audit log.
func (d *Dispatcher) record(ctx context.Context, act action.Definition, decision, reason, ruleID string) {
	if d.onDecision != nil {
		d.onDecision(decision)
	}
	if d.auditLog == nil {
		return
	}
	err := d.auditLog.Record(audit.Entry{
		RequestID: callerRequestID(ctx),
		AgentID:   callerAgentID(ctx),
		Call:      audit.Call{Method: "tools/call", Action: act.Name},
		Decision:  decision,
		Reason:    reason,
		RuleID:    ruleID,
	})
	if err != nil {
		d.logger.Error("audit write failed", zap.Error(err))
	}
}

// notify dispatches a webhook event for a guardrail denial.
func (d *Dispatcher) notify(ctx context.Context, act action.Definition, rep model.ReputationRecord, decision guardrail.Decision) {
	if d.alerts == nil {
		return
	}
	d.alerts.Dispatch(alert.Event{
		RequestID: callerRequestID(ctx),
		AgentID:   callerAgentID(ctx),
		Action:    act.Name,
		Decision:  audit.DecisionDeny,
		Reason:    decision.Reason,
		RuleID:    decision.RuleID,
		Score:     rep.Score,
	})
}

// renderText flattens an executor result into the text content shape.
func renderText(out any) string {
	switch v := out.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
