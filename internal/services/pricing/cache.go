package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// Cache is the shared store behind the price cache. The Redis adapter
// satisfies it in production; MemoryCache backs tests and single-node runs.
// Entries are written without store-side expiry: staleness is judged by the
// entry timestamp so an unreachable oracle can still fall back to the last
// known value.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// cacheEntry is one cached market value with its fetch time
type cacheEntry struct {
	Value     decimal.Decimal `json:"value"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// MemoryCache is a process-local Cache implementation
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Get retrieves a value into dest, which must be *cacheEntry
func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "cache key %s", key)
	}

	out, ok := dest.(*cacheEntry)
	if !ok {
		return errors.Wrap(errors.ErrInvalidInput, "memory cache dest must be *cacheEntry")
	}
	*out = entry
	return nil
}

// Set stores a value; the ttl is ignored because freshness is judged by
// the entry timestamp
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	entry, ok := value.(cacheEntry)
	if !ok {
		return errors.Wrap(errors.ErrInvalidInput, "memory cache value must be cacheEntry")
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}
