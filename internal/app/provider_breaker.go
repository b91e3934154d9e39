package app

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
	"github.com/textcast/textcast/internal/infrastructure/circuitbreaker"
	"github.com/textcast/textcast/internal/observability"
)

// breakerProvider wraps a weather provider with circuit breaker protection
// and per-attempt metrics. An open breaker turns the fetch into an immediate
// provider failure, which the failover manager records and moves past. The
// availability probe stays unguarded so a recovered upstream is noticed.
type breakerProvider struct {
	inner     ports.WeatherProvider
	breaker   *circuitbreaker.CircuitBreakerWrapper
	telemetry *observability.Telemetry
}

func newBreakerProvider(
	inner ports.WeatherProvider,
	breaker *circuitbreaker.CircuitBreakerWrapper,
	telemetry *observability.Telemetry,
) ports.WeatherProvider {
	return &breakerProvider{
		inner:     inner,
		breaker:   breaker,
		telemetry: telemetry,
	}
}

func (p *breakerProvider) Name() string {
	return p.inner.Name()
}

func (p *breakerProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

func (p *breakerProvider) GetForecast(ctx context.Context, coords domain.Coordinates) (*domain.StandardizedForecast, error) {
	var result *domain.StandardizedForecast

	err := p.breaker.Execute(ctx, "get-forecast", func() error {
		var err error
		result, err = p.inner.GetForecast(ctx, coords)

		return err
	})

	if err != nil {
		p.recordAttempt(ctx, "failure")

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ProviderGenericError{
				Provider: p.inner.Name(),
				Detail:   "provider temporarily suspended after repeated failures",
				Cause:    err,
			}
		}

		return nil, err
	}

	p.recordAttempt(ctx, "success")

	return result, nil
}

func (p *breakerProvider) recordAttempt(ctx context.Context, outcome string) {
	if p.telemetry != nil {
		p.telemetry.RecordProviderAttempt(ctx, p.inner.Name(), outcome)
	}
}
