package what3words

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

const (
	defaultHitTTL  = 24 * time.Hour
	defaultMissTTL = 10 * time.Minute
)

// cachedEntry is the serialized form of a resolution outcome. Negative
// results are remembered too, so a mistyped address does not hammer the
// upstream on retries.
type cachedEntry struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	NotFound  bool    `json:"not_found,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// CachedResolver decorates a WordsResolver with a cache layer. Word addresses
// are stable, so successful resolutions are held far longer than failures.
type CachedResolver struct {
	resolver ports.WordsResolver
	cache    ports.CacheService
	hitTTL   time.Duration
	missTTL  time.Duration
	logger   *zap.Logger
}

// NewCachedResolver wraps resolver with cache. Zero TTLs fall back to the
// defaults.
func NewCachedResolver(resolver ports.WordsResolver, cache ports.CacheService, hitTTL, missTTL time.Duration, logger *zap.Logger) *CachedResolver {
	if hitTTL <= 0 {
		hitTTL = defaultHitTTL
	}

	if missTTL <= 0 {
		missTTL = defaultMissTTL
	}

	return &CachedResolver{
		resolver: resolver,
		cache:    cache,
		hitTTL:   hitTTL,
		missTTL:  missTTL,
		logger:   logger,
	}
}

// Resolve returns a cached resolution when one exists, otherwise delegates
// and stores the outcome. Cache failures are never fatal.
func (r *CachedResolver) Resolve(ctx context.Context, words string) (domain.Coordinates, error) {
	key := cacheKey(words)

	if data, err := r.cache.Get(ctx, key); err == nil {
		var entry cachedEntry

		if err := json.Unmarshal(data, &entry); err == nil {
			if entry.NotFound {
				return domain.Coordinates{}, &domain.LocationLookupError{Message: entry.Message}
			}

			r.logger.Debug("words cache hit", zap.String("words", words))

			return domain.Coordinates{Latitude: entry.Latitude, Longitude: entry.Longitude}, nil
		}
	}

	coords, err := r.resolver.Resolve(ctx, words)

	if err != nil {
		var lookupErr *domain.LocationLookupError

		// Only definitive rejections are cached; transport hiccups and
		// timeouts should be retried immediately.
		if errors.As(err, &lookupErr) && lookupErr.Cause == nil {
			r.store(ctx, key, cachedEntry{NotFound: true, Message: lookupErr.Message}, r.missTTL)
		}

		return domain.Coordinates{}, err
	}

	r.store(ctx, key, cachedEntry{Latitude: coords.Latitude, Longitude: coords.Longitude}, r.hitTTL)

	return coords, nil
}

func (r *CachedResolver) store(ctx context.Context, key string, entry cachedEntry, ttl time.Duration) {
	data, err := json.Marshal(entry)

	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, key, data, ttl); err != nil {
		r.logger.Warn("failed to cache words resolution", zap.Error(err))
	}
}

func cacheKey(words string) string {
	return "w3w:" + strings.ToLower(words)
}

var _ ports.WordsResolver = (*CachedResolver)(nil)
