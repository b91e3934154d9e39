package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

type providerManager struct {
	providers map[string]ports.WeatherProvider
	order     []string
	active    atomic.Value
	logger    *zap.Logger
}

// NewProviderManager builds the failover manager from the given providers and
// an optional comma-separated priority hint. Hinted names that are registered
// come first in hint order, unknown hinted names are dropped, and registered
// providers missing from the hint are appended in registration order.
// Registering two providers under the same name is a configuration mistake
// and fails construction.
func NewProviderManager(providers []ports.WeatherProvider, priorityHint string, logger *zap.Logger) (ports.ForecastManager, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one weather provider is required")
	}

	byName := make(map[string]ports.WeatherProvider, len(providers))
	registered := make([]string, 0, len(providers))

	for _, p := range providers {
		name := p.Name()

		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate weather provider name %q", name)
		}

		byName[name] = p
		registered = append(registered, name)
	}

	m := &providerManager{
		providers: byName,
		order:     buildPriorityOrder(registered, priorityHint),
		logger:    logger,
	}

	m.active.Store("")

	logger.Info("weather provider manager initialized",
		zap.Strings("priority_order", m.order))

	return m, nil
}

// buildPriorityOrder merges the registration order with the priority hint.
// Every registered name appears exactly once in the result.
func buildPriorityOrder(registered []string, hint string) []string {
	order := make([]string, 0, len(registered))
	seen := make(map[string]bool, len(registered))

	if hint != "" {
		for _, raw := range strings.Split(hint, ",") {
			name := strings.TrimSpace(raw)

			if name == "" || seen[name] {
				continue
			}

			for _, reg := range registered {
				if reg == name {
					order = append(order, name)
					seen[name] = true

					break
				}
			}
		}
	}

	for _, name := range registered {
		if !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}

	return order
}

// GetForecast tries providers in priority order and returns the first
// successful forecast, already formatted as reply text. A caller-preferred
// provider is tried first when registered; its unavailability or failure is
// recorded and the priority sequence continues without re-trying it. In the
// main loop an unavailable provider is skipped without recording an error.
// When every provider was skipped or failed the recorded failures are
// aggregated into a single AllProvidersFailedError.
func (m *providerManager) GetForecast(ctx context.Context, coords domain.Coordinates, preferred string) (string, error) {
	if err := coords.Validate(); err != nil {
		return "", &domain.LocationFormatError{Message: err.Error()}
	}

	var failures []domain.ProviderFailure

	tried := ""

	if preferred != "" {
		if provider, ok := m.providers[preferred]; ok {
			tried = preferred
			reply, err := m.attempt(ctx, provider, coords)

			if err == nil {
				return reply, nil
			}

			failures = append(failures, domain.ProviderFailure{Provider: preferred, Err: err})
		} else {
			m.logger.Debug("preferred provider not registered, ignoring",
				zap.String("provider", preferred))
		}
	}

	for _, name := range m.order {
		if name == tried {
			continue
		}

		provider := m.providers[name]

		if !provider.IsAvailable(ctx) {
			m.logger.Debug("skipping unavailable provider", zap.String("provider", name))
			continue
		}

		forecast, err := provider.GetForecast(ctx, coords)

		if err != nil {
			m.logger.Warn("provider forecast failed",
				zap.String("provider", name),
				zap.Error(err))

			failures = append(failures, domain.ProviderFailure{Provider: name, Err: err})

			continue
		}

		m.active.Store(name)

		return FormatForecast(forecast), nil
	}

	return "", &domain.AllProvidersFailedError{Failures: failures}
}

// attempt runs the preferred-provider path: probe first, then fetch. Both
// outcomes count as recordable failures since the provider was explicitly
// requested.
func (m *providerManager) attempt(ctx context.Context, provider ports.WeatherProvider, coords domain.Coordinates) (string, error) {
	name := provider.Name()

	if !provider.IsAvailable(ctx) {
		return "", fmt.Errorf("provider is not reachable")
	}

	forecast, err := provider.GetForecast(ctx, coords)

	if err != nil {
		m.logger.Warn("preferred provider forecast failed",
			zap.String("provider", name),
			zap.Error(err))

		return "", err
	}

	m.active.Store(name)

	return FormatForecast(forecast), nil
}

// ActiveProvider reports the most recently successful provider name. It is
// diagnostic only and never influences the attempt order of later calls.
func (m *providerManager) ActiveProvider() string {
	return m.active.Load().(string)
}

// PriorityOrder returns a copy of the deterministic attempt sequence.
func (m *providerManager) PriorityOrder() []string {
	order := make([]string, len(m.order))
	copy(order, m.order)

	return order
}
