package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Cache = (*MemoryCache)(nil)

// MemoryCache is an in-process Cache for single-node deployments and tests.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", NewCacheError("get", key, ErrInvalidCacheKey)
	}

	value, ok := m.store.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}

	s, ok := value.(string)
	if !ok {
		return "", ErrCacheMiss
	}
	return s, nil
}

func (m *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return NewCacheError("set", key, ErrInvalidCacheKey)
	}

	m.store.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.store.Delete(key)
	}
	return nil
}

// Archive keeps a copy of fields under key without expiry.
func (m *MemoryCache) Archive(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return NewCacheError("archive", key, ErrInvalidCacheKey)
	}

	record := make(map[string]string, len(fields))
	for k, v := range fields {
		record[k] = v
	}
	m.store.Set(key, record, gocache.NoExpiration)
	return nil
}

// Archived returns what Archive stored under key.
func (m *MemoryCache) Archived(key string) (map[string]string, bool) {
	value, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	record, ok := value.(map[string]string)
	return record, ok
}

func (m *MemoryCache) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
