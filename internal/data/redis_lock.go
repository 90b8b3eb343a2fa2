package data

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock is a distributed per-export lock over Redis. It keeps at most one
// active run per export across replicas; the TTL bounds how long a dead
// runner can hold a lock.
type RunLock struct {
	client redis.UniversalClient
	prefix string
}

// NewRunLock creates a RunLock. A nil client yields a lock that always
// grants, for single-instance deployments without Redis.
func NewRunLock(client redis.UniversalClient, prefix string) *RunLock {
	if prefix == "" {
		prefix = "rowboat:run"
	}
	return &RunLock{client: client, prefix: prefix}
}

func (l *RunLock) key(name string) string {
	return l.prefix + ":" + name
}

// Acquire attempts to take the lock for the named export. Returns false when
// another runner holds it.
func (l *RunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.key(name), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock for %q: %w", name, err)
	}
	return ok, nil
}

// Release frees the lock for the named export.
func (l *RunLock) Release(ctx context.Context, name string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := l.client.Del(ctx, l.key(name)).Err(); err != nil {
		return fmt.Errorf("release run lock for %q: %w", name, err)
	}
	return nil
}
