// Package rpc implements the JSON-RPC 2.0 protocol surface: envelope
// parsing, method routing, and batch handling with per-entry error
// isolation.
package rpc

import "encoding/json"

// ProtocolVersion is reported by initialize.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes, plus implementation-defined codes in the
// reserved -32000..-32099 range.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodePermissionDenied = -32001
	CodeGuardrailDenied  = -32002
)

// Request is a single JSON-RPC 2.0 request. ID and Params stay raw so
// the dispatcher can distinguish an absent id (notification) from an
// explicit null and defer params decoding to the method handler.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id and
// therefore expects no response entry.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is a single JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

var nullID = json.RawMessage("null")

// result builds a success response correlated to the request id.
func result(id json.RawMessage, v any) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

// errorResponse builds an error response correlated to the request id,
// or null when the id is unknown.
func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}
