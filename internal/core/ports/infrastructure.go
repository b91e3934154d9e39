package ports

import (
	"context"
	"time"
)

// CacheService abstracts reply and lookup caching. Implementations return an
// error on miss; callers treat any Get error as a miss.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RateLimitService answers whether an identifier may perform another request
// within the sliding window.
type RateLimitService interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, identifier string) error
}

// MessageSender transmits an outbound text to a destination address. It
// fails with domain.DeliveryError on transport failure.
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}
