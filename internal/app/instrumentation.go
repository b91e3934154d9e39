package app

import (
	"context"
	"errors"
	"time"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
	"github.com/textcast/textcast/internal/core/services"
	"github.com/textcast/textcast/internal/observability"
)

// instrumentedMessageService counts processed messages by outcome.
type instrumentedMessageService struct {
	inner     ports.MessageService
	telemetry *observability.Telemetry
}

func newInstrumentedMessageService(inner ports.MessageService, telemetry *observability.Telemetry) ports.MessageService {
	if telemetry == nil {
		return inner
	}

	return &instrumentedMessageService{
		inner:     inner,
		telemetry: telemetry,
	}
}

func (s *instrumentedMessageService) HandleMessage(ctx context.Context, sender, text, preferred string) (string, error) {
	reply, err := s.inner.HandleMessage(ctx, sender, text, preferred)

	s.telemetry.RecordMessage(ctx, messageOutcome(reply, err))

	return reply, err
}

func messageOutcome(reply string, err error) string {
	var formatErr *domain.LocationFormatError
	var lookupErr *domain.LocationLookupError
	var providersErr *domain.AllProvidersFailedError

	switch {
	case err == nil && reply == services.GuidanceReply:
		return "guidance"
	case err == nil:
		return "forecast"
	case errors.As(err, &formatErr), errors.As(err, &lookupErr):
		return "location_error"
	case errors.As(err, &providersErr):
		return "provider_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal_error"
	}
}

// instrumentedCache counts hits and misses across the reply and words
// caches.
type instrumentedCache struct {
	inner     ports.CacheService
	telemetry *observability.Telemetry
}

func newInstrumentedCache(inner ports.CacheService, telemetry *observability.Telemetry) ports.CacheService {
	if telemetry == nil {
		return inner
	}

	return &instrumentedCache{
		inner:     inner,
		telemetry: telemetry,
	}
}

func (c *instrumentedCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.inner.Get(ctx, key)

	if err != nil {
		c.telemetry.RecordCacheMiss(ctx, key)
	} else {
		c.telemetry.RecordCacheHit(ctx, key)
	}

	return value, err
}

func (c *instrumentedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, key, value, ttl)
}

func (c *instrumentedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *instrumentedCache) Clear(ctx context.Context) error {
	return c.inner.Clear(ctx)
}

// instrumentedSender counts outbound deliveries by outcome.
type instrumentedSender struct {
	inner     ports.MessageSender
	telemetry *observability.Telemetry
}

func newInstrumentedSender(inner ports.MessageSender, telemetry *observability.Telemetry) ports.MessageSender {
	if inner == nil || telemetry == nil {
		return inner
	}

	return &instrumentedSender{
		inner:     inner,
		telemetry: telemetry,
	}
}

func (s *instrumentedSender) Send(ctx context.Context, to, body string) error {
	err := s.inner.Send(ctx, to, body)

	if err != nil {
		s.telemetry.RecordDelivery(ctx, "failure")
	} else {
		s.telemetry.RecordDelivery(ctx, "success")
	}

	return err
}
