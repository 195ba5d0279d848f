package cache

import (
	"context"
	"time"
)

// Cache is the advisory short code -> URL store in front of the database.
// Implementations must be safe for concurrent use. Callers treat every error
// other than ErrCacheMiss as a degraded cache, never as a failed operation.
//
//go:generate mockgen -source=interfaces.go -destination=mocks/mock_cache.go -package=mocks
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Archive writes a best-effort audit record; there is no read contract.
	Archive(ctx context.Context, key string, fields map[string]string) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// NullCache - заглушка для работы без кэша (Null Object Pattern)
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

func NewNullCache() *NullCache {
	return &NullCache{}
}

func (n *NullCache) Get(ctx context.Context, key string) (string, error) {
	return "", ErrCacheMiss // Всегда miss
}

func (n *NullCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (n *NullCache) Delete(ctx context.Context, keys ...string) error {
	return nil
}

func (n *NullCache) Archive(ctx context.Context, key string, fields map[string]string) error {
	return nil
}

func (n *NullCache) HealthCheck(ctx context.Context) error {
	return nil
}

func (n *NullCache) Close() error {
	return nil
}
