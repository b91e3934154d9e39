// Package circuitbreaker wraps Sony's GoBreaker library with observability
// instrumentation and a small manager. Weather providers are wrapped with
// breakers so a flapping upstream fails fast instead of burning the
// per-message time budget on every request.
package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CircuitBreakerWrapper adds OpenTelemetry spans and structured logging
// around a gobreaker instance.
//
//goland:noinspection GoNameStartsWithPackageName
type CircuitBreakerWrapper struct {
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	name    string
}

// Config defines circuit breaker behavior and thresholds.
type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// NewCircuitBreaker creates a circuit breaker. Without a ReadyToTrip
// callback the breaker opens after 3 requests with a 50% failure ratio.
//
// Parameters:
//   - cfg: Circuit breaker configuration including thresholds and callbacks
//   - logger: Zap logger for state change events
//
// Returns:
//   - *CircuitBreakerWrapper: Configured circuit breaker instance
func NewCircuitBreaker(cfg Config, logger *zap.Logger) *CircuitBreakerWrapper {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))

			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= 0.5
		}
	}

	return &CircuitBreakerWrapper{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Execute runs fn within the circuit breaker. When the breaker is open it
// returns gobreaker.ErrOpenState without invoking fn.
//
// Parameters:
//   - ctx: Context for tracing
//   - operation: Label recorded on the span, such as the provider call name
//   - fn: Function to execute under breaker protection
//
// Returns:
//   - error: Function error or gobreaker.ErrOpenState/ErrTooManyRequests
func (cb *CircuitBreakerWrapper) Execute(ctx context.Context, operation string, fn func() error) error {
	tracer := otel.Tracer("circuit-breaker")
	_, span := tracer.Start(ctx, "CircuitBreaker.Execute")

	defer span.End()

	span.SetAttributes(
		attribute.String("circuit_breaker.name", cb.name),
		attribute.String("circuit_breaker.operation", operation),
		attribute.String("circuit_breaker.state", cb.breaker.State().String()),
	)

	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err != nil {
		span.RecordError(err)

		cb.logger.Warn("circuit breaker execution failed",
			zap.String("name", cb.name),
			zap.String("operation", operation),
			zap.String("state", cb.breaker.State().String()),
			zap.Error(err))
	}

	span.SetAttributes(
		attribute.String("circuit_breaker.final_state", cb.breaker.State().String()),
		attribute.Bool("circuit_breaker.success", err == nil),
	)

	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreakerWrapper) State() gobreaker.State {
	return cb.breaker.State()
}

// Counts returns the current circuit breaker statistics.
func (cb *CircuitBreakerWrapper) Counts() gobreaker.Counts {
	return cb.breaker.Counts()
}

// Manager holds one circuit breaker per weather provider.
type Manager struct {
	breakers map[string]*CircuitBreakerWrapper
	logger   *zap.Logger
}

// NewManager creates a circuit breaker manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*CircuitBreakerWrapper),
		logger:   logger,
	}
}

// GetBreaker retrieves or creates a circuit breaker by name. The config is
// ignored when the breaker already exists.
//
// Parameters:
//   - name: Unique identifier, the weather provider name
//   - cfg: Configuration applied when the breaker is first created
//
// Returns:
//   - *CircuitBreakerWrapper: Circuit breaker instance
func (m *Manager) GetBreaker(name string, cfg Config) *CircuitBreakerWrapper {
	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	cfg.Name = name
	breaker := NewCircuitBreaker(cfg, m.logger)
	m.breakers[name] = breaker

	return breaker
}

// GetStats returns statistics for all managed circuit breakers. The /stats
// endpoint exposes this snapshot.
//
// Returns:
//   - map[string]interface{}: Per-breaker state and counts, keyed by name
func (m *Manager) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	for name, breaker := range m.breakers {
		counts := breaker.Counts()
		stats[name] = map[string]interface{}{
			"state":                 breaker.State().String(),
			"requests":              counts.Requests,
			"total_successes":       counts.TotalSuccesses,
			"total_failures":        counts.TotalFailures,
			"consecutive_successes": counts.ConsecutiveSuccesses,
			"consecutive_failures":  counts.ConsecutiveFailures,
		}
	}

	return stats
}
