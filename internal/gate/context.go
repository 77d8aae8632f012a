package gate

import (
	"context"
	"time"

	"github.com/okhotin/agentgate/internal/token"
)

type ctxKey struct{}

// RequestInfo is the trusted per-request metadata the gate injects.
// AgentID and Claims are set only after successful token verification;
// a caller-supplied X-Agent-ID header never populates them.
type RequestInfo struct {
	RequestID  string
	RemoteAddr string
	ReceivedAt time.Time
	AgentID    string
	Claims     *token.Claims
	Degraded   bool
}

// WithRequestInfo returns a context carrying the request metadata.
// The pointer is shared so downstream handlers can flag degradation.
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext extracts the request metadata injected by the gate.
func FromContext(ctx context.Context) (*RequestInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(*RequestInfo)
	return info, ok
}

// MarkDegraded flags the request as served with incomplete auxiliary
// context (e.g. the reputation store was unreachable).
func MarkDegraded(ctx context.Context) {
	if info, ok := FromContext(ctx); ok {
		info.Degraded = true
	}
}
