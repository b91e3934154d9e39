// Package cache provides the cache implementations backing reply caching and
// three-word-address resolution memoization. It includes a Redis-based
// distributed cache and an in-memory fallback, both instrumented with
// OpenTelemetry spans.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/ports"
)

// RedisCache implements distributed caching using Redis. Multiple service
// instances share cached replies and word resolutions through it.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection and performance settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisCache creates a Redis-backed cache. It pings the server before
// returning so callers can fall back to the memory cache when Redis is down.
//
// Parameters:
//   - cfg: Redis connection and performance settings
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.CacheService: Redis cache implementation
//   - error: Connection error if Redis is unreachable
func NewRedisCache(cfg Config, logger *zap.Logger) (ports.CacheService, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: rdb,
		logger: logger,
	}, nil
}

// Get retrieves a value from Redis by key. Callers treat any error as a
// miss, so Redis outages degrade to fetching fresh forecasts.
//
// Parameters:
//   - ctx: Context for tracing and cancellation
//   - key: Cache key to look up
//
// Returns:
//   - []byte: Cached value if found
//   - error: ErrCacheMiss if key is not found, or a Redis error
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Get")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	start := time.Now()
	result, err := r.client.Get(ctx, key).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))

		r.logger.Debug("cache miss",
			zap.String("key", key),
			zap.Duration("duration", duration))

		return nil, ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache get error",
			zap.String("key", key),
			zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))

	r.logger.Debug("cache hit",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return result, nil
}

// Set stores a value in Redis with the specified TTL.
//
// Parameters:
//   - ctx: Context for tracing and cancellation
//   - key: Cache key to store under
//   - value: Value to cache
//   - ttl: Time-to-live for this item
//
// Returns:
//   - error: Redis error if the write fails
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Set")

	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
		attribute.String("cache.ttl", ttl.String()),
	)

	start := time.Now()
	err := r.client.Set(ctx, key, value, ttl).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache set error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache set",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Delete removes a value from Redis by key.
//
// Parameters:
//   - ctx: Context for tracing and cancellation
//   - key: Cache key to remove
//
// Returns:
//   - error: Redis error if the delete fails
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Delete")

	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))
	start := time.Now()
	err := r.client.Del(ctx, key).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache delete error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache delete",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Clear flushes all values from the Redis database.
//
// Parameters:
//   - ctx: Context for tracing and cancellation
//
// Returns:
//   - error: Redis error if the flush fails
func (r *RedisCache) Clear(ctx context.Context) error {
	tracer := otel.Tracer("cache")
	ctx, span := tracer.Start(ctx, "Cache.Clear")

	defer span.End()

	start := time.Now()
	err := r.client.FlushDB(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		r.logger.Error("cache clear error", zap.Error(err))

		return err
	}

	r.logger.Info("cache cleared", zap.Duration("duration", duration))

	return nil
}

// Close closes the Redis client connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// ErrCacheMiss indicates a cache key was not found.
var ErrCacheMiss = redis.Nil
