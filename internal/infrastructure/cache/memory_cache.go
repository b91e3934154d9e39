package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/ports"
)

// MemoryCache is the in-process fallback used when Redis is unreachable.
// Replies and word resolutions cached here are lost on restart and not
// shared between instances, which is acceptable degradation.
type MemoryCache struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryCache creates an in-memory cache with the given default TTL and
// cleanup interval.
//
// Parameters:
//   - defaultTTL: Default time-to-live for cached items
//   - cleanupInterval: How often expired items are evicted
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.CacheService: In-memory cache implementation
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, logger *zap.Logger) ports.CacheService {
	return &MemoryCache{
		cache:  gocache.New(defaultTTL, cleanupInterval),
		logger: logger,
	}
}

// Get retrieves a value from the cache by key.
//
// Parameters:
//   - ctx: Context for tracing
//   - key: Cache key to look up
//
// Returns:
//   - []byte: Cached value if found
//   - error: ErrCacheMiss if key is not found
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	if value, found := m.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		m.logger.Debug("memory cache hit", zap.String("key", key))

		return value.([]byte), nil
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	m.logger.Debug("memory cache miss", zap.String("key", key))

	return nil, ErrCacheMiss
}

// Set stores a value in the cache with the specified TTL.
//
// Parameters:
//   - ctx: Context for tracing
//   - key: Cache key to store under
//   - value: Value to cache
//   - ttl: Time-to-live for this item
//
// Returns:
//   - error: Always nil for the in-memory implementation
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
		attribute.String("cache.ttl", ttl.String()),
	)

	m.cache.Set(key, value, ttl)
	m.logger.Debug("memory cache set", zap.String("key", key))

	return nil
}

// Delete removes a value from the cache by key.
//
// Parameters:
//   - ctx: Context for tracing
//   - key: Cache key to remove
//
// Returns:
//   - error: Always nil for the in-memory implementation
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	m.cache.Delete(key)
	m.logger.Debug("memory cache delete", zap.String("key", key))

	return nil
}

// Clear removes all values from the cache.
//
// Parameters:
//   - ctx: Context for tracing
//
// Returns:
//   - error: Always nil for the in-memory implementation
func (m *MemoryCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	_, span := tracer.Start(ctx, "MemoryCache.Clear")

	defer span.End()

	m.cache.Flush()
	m.logger.Info("memory cache cleared")

	return nil
}
