package gate

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version is the API version reported in response metadata.
const Version = "1.0.0"

// Error codes returned by the access pipeline and token endpoints.
const (
	CodeAgentBlocked       = "AGENT_BLOCKED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeTokenRequired      = "TOKEN_REQUIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody is the machine-readable error half of an envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta accompanies every envelope.
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
	Version   string `json:"version"`
	Degraded  bool   `json:"degraded,omitempty"`
}

// Envelope is the uniform response shape for all non-JSON-RPC endpoints.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

func newMeta(r *http.Request) Meta {
	m := Meta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	}
	if info, ok := FromContext(r.Context()); ok {
		m.RequestID = info.RequestID
		m.Degraded = info.Degraded
	}
	return m
}

// WriteData writes a success envelope with the given payload.
func WriteData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Meta: newMeta(r)})
}

// WriteError writes a failure envelope with the given code and message.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
		Meta:    newMeta(r),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
