package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process fallback used when no redis is configured.
// Values are stored encoded so callers never share mutable state.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		c: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	const op = "cache.MemoryCache.Get"

	v, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		m.c.Delete(key)
		return false, nil
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	const op = "cache.MemoryCache.Set"

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.c.Set(key, b, ttl)

	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}
