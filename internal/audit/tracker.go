package audit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FailureTracker counts recent denied or failed events per principal so the
// recorder can spot brute-force patterns.
type FailureTracker interface {
	RecordFailure(ctx context.Context, actorHash string, window time.Duration) (int64, error)
}

// RedisFailureTracker implements FailureTracker on Redis counters with a
// rolling expiry window.
type RedisFailureTracker struct {
	client *redis.Client
}

// NewRedisFailureTracker constructs a RedisFailureTracker.
func NewRedisFailureTracker(client *redis.Client) *RedisFailureTracker {
	return &RedisFailureTracker{client: client}
}

// RecordFailure increments the actor's failure counter and returns the new
// count within the window.
func (t *RedisFailureTracker) RecordFailure(ctx context.Context, actorHash string, window time.Duration) (int64, error) {
	key := "audit:failures:" + actorHash
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

var _ FailureTracker = (*RedisFailureTracker)(nil)

// MemoryFailureTracker is an in-process FailureTracker for tests.
type MemoryFailureTracker struct {
	mu     sync.Mutex
	counts map[string][]time.Time
}

// NewMemoryFailureTracker constructs an empty tracker.
func NewMemoryFailureTracker() *MemoryFailureTracker {
	return &MemoryFailureTracker{counts: make(map[string][]time.Time)}
}

// RecordFailure appends a failure timestamp and returns the in-window count.
func (t *MemoryFailureTracker) RecordFailure(ctx context.Context, actorHash string, window time.Duration) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-window)
	kept := t.counts[actorHash][:0]
	for _, ts := range t.counts[actorHash] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.counts[actorHash] = kept
	return int64(len(kept)), nil
}

var _ FailureTracker = (*MemoryFailureTracker)(nil)
