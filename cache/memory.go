package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is an in-process LRU cache, used when no Redis is configured. Implements Cache.
type MemoryCache struct {
	entries *expirable.LRU[string, memoryEntry]
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a cache holding at most size entries. Entries are evicted after their own
// TTL, and never live longer than maxTTL.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	return &MemoryCache{entries: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL)}
}

func (cache *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := cache.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		cache.entries.Remove(key)
		return nil, false, nil
	}

	return entry.value, true, nil
}

func (cache *MemoryCache) SetEx(
	ctx context.Context,
	key string,
	ttl time.Duration,
	value []byte,
) error {
	cache.entries.Add(key, memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (cache *MemoryCache) Len() int {
	return cache.entries.Len()
}
