package rpc

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/okhotin/agentgate/internal/action"
	"github.com/okhotin/agentgate/internal/alert"
	"github.com/okhotin/agentgate/internal/audit"
	"github.com/okhotin/agentgate/internal/gate"
	"github.com/okhotin/agentgate/internal/guardrail"
	"github.com/okhotin/agentgate/internal/permission"
	"github.com/okhotin/agentgate/internal/reputation"
)

// Executor performs the committed side effect of a tool invocation.
// It runs only after the permission, confirmation and guardrail checks
// have all passed.
type Executor interface {
	Execute(ctx context.Context, act action.Definition, args map[string]any) (any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, act action.Definition, args map[string]any) (any, error)

func (f ExecutorFunc) Execute(ctx context.Context, act action.Definition, args map[string]any) (any, error) {
	return f(ctx, act, args)
}

// Dispatcher routes JSON-RPC requests to method handlers. All
// collaborators are injected; nil audit, alerts and reputation are
// tolerated (the concern is skipped).
type Dispatcher struct {
	catalog    *action.Catalog
	engine     *guardrail.Engine
	executor   Executor
	reputation *reputation.Reader
	resources  *ResourceSet
	prompts    *PromptSet
	auditLog   *audit.Log
	alerts     *alert.Dispatcher
	onDecision func(decision string)
	logger     *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithReputation(r *reputation.Reader) Option { return func(d *Dispatcher) { d.reputation = r } }
func WithResources(rs *ResourceSet) Option       { return func(d *Dispatcher) { d.resources = rs } }
func WithPrompts(ps *PromptSet) Option           { return func(d *Dispatcher) { d.prompts = ps } }
func WithAudit(l *audit.Log) Option              { return func(d *Dispatcher) { d.auditLog = l } }
func WithAlerts(a *alert.Dispatcher) Option      { return func(d *Dispatcher) { d.alerts = a } }
func WithLogger(l *zap.Logger) Option            { return func(d *Dispatcher) { d.logger = l } }

// WithDecisionHook calls fn with every tools/call outcome, e.g. to
// feed a decision counter.
func WithDecisionHook(fn func(decision string)) Option {
	return func(d *Dispatcher) { d.onDecision = fn }
}

// NewDispatcher creates a Dispatcher over the action catalog, guardrail
// engine and executor.
func NewDispatcher(catalog *action.Catalog, engine *guardrail.Engine, executor Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:   catalog,
		engine:    engine,
		executor:  executor,
		resources: DefaultResources(),
		prompts:   DefaultPrompts(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes a raw JSON-RPC body, single object or batch array,
// and returns the serialized response. A nil return means the body was
// all notifications and no response should be written.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) []byte {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return mustMarshal(errorResponse(nil, CodeParseError, "empty request body", nil))
	}

	if trimmed[0] == '[' {
		return d.handleBatch(ctx, trimmed)
	}

	resp := d.handleRaw(ctx, trimmed)
	if resp == nil {
		return nil
	}
	return mustMarshal(resp)
}

// handleBatch processes each entry independently: a malformed entry
// yields its own error object and never aborts the rest.
func (d *Dispatcher) handleBatch(ctx context.Context, body []byte) []byte {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return mustMarshal(errorResponse(nil, CodeParseError, "invalid JSON", nil))
	}
	if len(entries) == 0 {
		return mustMarshal(errorResponse(nil, CodeInvalidRequest, "empty batch", nil))
	}

	responses := make([]*Response, 0, len(entries))
	for _, entry := range entries {
		if resp := d.handleRaw(ctx, entry); resp != nil {
			responses = append(responses, resp)
		}
	}
	if len(responses) == 0 {
		return nil
	}
	return mustMarshal(responses)
}

// handleRaw validates and dispatches one request object.
func (d *Dispatcher) handleRaw(ctx context.Context, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeInvalidRequest, "request must be a JSON-RPC 2.0 object", nil)
	}

	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, CodeInvalidRequest, "unsupported jsonrpc version", nil)
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "missing method", nil)
	}

	resp := d.dispatch(ctx, req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

// dispatch routes by method name. Panics in handlers are recovered
// into -32603 so one request can never take down another.
func (d *Dispatcher) dispatch(ctx context.Context, req Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				zap.String("method", req.Method),
				zap.Any("panic", r))
			resp = errorResponse(req.ID, CodeInternalError, "internal error", nil)
		}
	}()

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "tools/list":
		return d.handleToolsList(ctx, req)
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	case "resources/list":
		return d.handleResourcesList(ctx, req)
	case "resources/read":
		return d.handleResourcesRead(ctx, req)
	case "prompts/list":
		return d.handlePromptsList(req)
	case "prompts/get":
		return d.handlePromptsGet(req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "method not found",
			map[string]any{"method": req.Method})
	}
}

func (d *Dispatcher) handleInitialize(req Request) *Response {
	return result(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "agentgate",
			"version": gate.Version,
		},
	})
}

// callerPermissions resolves the verified caller's permission levels
// from the gate context, defaulting to read-only for unverified
// callers (tests, public previews).
func callerPermissions(ctx context.Context) []permission.Level {
	if info, ok := gate.FromContext(ctx); ok && info.Claims != nil {
		return info.Claims.PermissionLevels()
	}
	return []permission.Level{permission.Read}
}

func callerScopes(ctx context.Context) []string {
	if info, ok := gate.FromContext(ctx); ok && info.Claims != nil {
		return info.Claims.Scopes
	}
	return nil
}

func callerAgentID(ctx context.Context) string {
	if info, ok := gate.FromContext(ctx); ok && info.AgentID != "" {
		return info.AgentID
	}
	return "anonymous"
}

func callerRequestID(ctx context.Context) string {
	if info, ok := gate.FromContext(ctx); ok {
		return info.RequestID
	}
	return ""
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Response shapes are built from marshalable values only.
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return data
}
