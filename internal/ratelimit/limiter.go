package ratelimit

import (
	"context"
	"time"
)

// Defaults match the documented policy: 100 requests per 60-second
// fixed window per caller key.
const (
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Second
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetAt   time.Time
}

// Store provides the shared counter table. Incr must atomically open a
// new window (count=1) when the key is unseen or its window has
// elapsed, and increment otherwise; the rollover and the increment are
// a single atomic step so two concurrent requests can never both
// observe a fresh window. The store is injected so a distributed
// backend can replace the in-process table without touching call sites.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Limiter is a fixed-window rate limiter over an injected Store.
// Fixed-window admits up to 2×limit across a window boundary; that
// trade-off is deliberate (bounded abuse, not precise fairness) and
// changing it would change externally observable admission behavior.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New creates a Limiter. Non-positive limit or window fall back to the
// defaults.
func New(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// Limit returns the configured per-window admission limit.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured counting window.
func (l *Limiter) Window() time.Duration { return l.window }

// Check records one request for key and reports whether it is
// admitted. Count reflects this request; Remaining is the quota left
// after it (never negative).
func (l *Limiter) Check(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, err
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= l.limit,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
