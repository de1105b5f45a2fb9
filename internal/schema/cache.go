package schema

import (
	"context"
	"sync"
	"time"

	"github.com/querydeck/querydeck/internal/observability"
)

// Cached wraps a Provider with a TTL. Refresh is last-writer-wins: two
// concurrent misses may both introspect, which is acceptable because
// the result is idempotent. The clock is injectable for tests.
type Cached struct {
	inner Provider
	ttl   time.Duration
	now   func() time.Time

	mu        sync.RWMutex
	snapshot  Snapshot
	fetchedAt time.Time
}

func NewCached(inner Provider, ttl time.Duration, now func() time.Time) *Cached {
	if now == nil {
		now = time.Now
	}
	return &Cached{inner: inner, ttl: ttl, now: now}
}

func (c *Cached) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	snapshot, fetchedAt := c.snapshot, c.fetchedAt
	c.mu.RUnlock()

	if !fetchedAt.IsZero() && c.now().Sub(fetchedAt) < c.ttl {
		observability.IncrementSchemaCacheLookup("hit")
		return snapshot, nil
	}

	observability.IncrementSchemaCacheLookup("miss")
	fresh, err := c.inner.Snapshot(ctx)
	if err != nil {
		// No stale fallback: an introspection failure fails the request.
		return Snapshot{}, err
	}

	c.mu.Lock()
	c.snapshot = fresh
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return fresh, nil
}

// Age reports how old the cached snapshot is; zero duration and false
// when nothing is cached yet.
func (c *Cached) Age() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() {
		return 0, false
	}
	return c.now().Sub(c.fetchedAt), true
}
