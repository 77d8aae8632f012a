package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces rate counters inside a shared Redis instance.
const keyPrefix = "agentgate:rate:"

// RedisStore backs the counter table with Redis so multiple gateway
// instances share one global window per key. INCR+EXPIRE preserves
// the same fixed-window semantics as MemoryStore: the key's TTL is
// the window, and the first increment after expiry opens a new one.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

// Incr implements Store. The INCR and the conditional EXPIRE run in
// one pipeline round-trip; ExpireNX only arms the TTL when none is
// set, so concurrent first-requests cannot stretch the window.
func (r *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	rkey := keyPrefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.ExpireNX(ctx, rkey, window)
	ttl := pipe.PTTL(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: redis incr %q: %w", key, err)
	}

	count := int(incr.Val())
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return count, time.Now().Add(remaining), nil
}
