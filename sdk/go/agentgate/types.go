package agentgate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Token is an issued agent credential.
type Token struct {
	Token       string    `json:"token"`
	AgentID     string    `json:"agentId"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Permissions []string  `json:"permissions"`
	Scopes      []string  `json:"scopes"`
}

// Tool describes an action the gateway exposes to this caller.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Introspection is the decoded state of the client's current token.
type Introspection struct {
	AgentID          string   `json:"agentId"`
	Provider         string   `json:"provider"`
	Permissions      []string `json:"permissions"`
	Scopes           []string `json:"scopes"`
	IsExpired        bool     `json:"isExpired"`
	RemainingSeconds int      `json:"remainingSeconds"`
}

// APIError is a non-2xx envelope response from the gateway's REST
// surface. Code carries the machine-readable reason, e.g.
// "RATE_LIMIT_EXCEEDED" or "INVALID_TOKEN".
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agentgate: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
}

// RPCError is a JSON-RPC error object returned for a call.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("agentgate: rpc error %d: %s", e.Code, e.Message)
}

// PermissionDenied reports whether the error is the gateway refusing a
// call for lack of a permission grant.
func (e *RPCError) PermissionDenied() bool { return e.Code == -32001 }

// GuardrailDenied reports whether a guardrail rule blocked the call.
func (e *RPCError) GuardrailDenied() bool { return e.Code == -32002 }

// envelope mirrors the gateway's REST response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpcRequest is a single JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  any             `json:"params,omitempty"`
}

// rpcResponse is a single JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}
