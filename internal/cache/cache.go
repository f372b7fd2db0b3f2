package cache

import (
	"context"
	"sync"
	"time"
)

// Cache defines the interface for TTL caching implementations. Keys are opaque
// strings formed by the caller (e.g. "weather:<lat>,<lon>", "locations:<query>");
// the cache has no knowledge of their semantics.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
}

// InMemory implements Cache using an in-memory map with TTL-based expiration.
// Expired entries are removed lazily on access; there is no background sweep
// and no bound on total entries. Safe for concurrent use.
type InMemory[V any] struct {
	mu   sync.Mutex
	data map[string]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewInMemory creates a new in-memory cache instance.
func NewInMemory[V any]() *InMemory[V] {
	return &InMemory[V]{
		data: make(map[string]entry[V]),
	}
}

// Get retrieves the cached value for the key if present and not expired.
// Returns (value, true, nil) on hit, (zero, false, nil) on miss or expiration.
// Expired entries are removed on access.
func (c *InMemory[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return zero, false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.data, key)
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores a value with the specified TTL, overwriting any existing entry
// and resetting its expiry.
func (c *InMemory[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
