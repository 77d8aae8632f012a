package reputation

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/okhotin/agentgate/internal/model"
)

// readTimeout bounds a reputation lookup on the request critical path.
const readTimeout = 300 * time.Millisecond

// Reader wraps a Store with a circuit breaker and a bounded timeout.
// When the store is down or the breaker is open, Get returns the
// conservative default record and reports the degradation instead of
// failing the request; the gateway's availability outranks the
// completeness of auxiliary context.
type Reader struct {
	store  Store
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewReader creates a breaker-guarded reader over the given store.
func NewReader(store Store, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "reputation-store",
		Interval: 30 * time.Second,
		Timeout:  15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Reader{store: store, cb: cb, logger: logger}
}

// Get returns the agent's reputation record. The second return value
// reports degraded mode: true when the store was unreachable (or the
// breaker open) and the default record was substituted. A missing
// record is not degradation; a new agent legitimately has no history.
func (r *Reader) Get(ctx context.Context, agentID string) (model.ReputationRecord, bool) {
	result, err := r.cb.Execute(func() (any, error) {
		rctx, cancel := context.WithTimeout(ctx, readTimeout)
		defer cancel()
		return r.store.Get(rctx, agentID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DefaultRecord(agentID), false
		}
		r.logger.Warn("reputation lookup degraded",
			zap.String("agent_id", agentID),
			zap.Error(err))
		return DefaultRecord(agentID), true
	}
	return result.(model.ReputationRecord), false
}
