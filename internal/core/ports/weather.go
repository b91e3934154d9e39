package ports

import (
	"context"

	"github.com/textcast/textcast/internal/core/domain"
)

// WeatherProvider is the capability contract every backing weather source
// implements. GetForecast either returns a fully populated forecast or fails
// with one of the domain provider errors; IsAvailable is a cheap reachability
// probe that never returns an error.
type WeatherProvider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	GetForecast(ctx context.Context, coords domain.Coordinates) (*domain.StandardizedForecast, error)
}

// ForecastManager resolves coordinates to a formatted forecast reply by
// trying providers in priority order. ActiveProvider and PriorityOrder are
// diagnostic accessors; the active provider never influences the attempt
// sequence of later calls.
type ForecastManager interface {
	GetForecast(ctx context.Context, coords domain.Coordinates, preferred string) (string, error)
	ActiveProvider() string
	PriorityOrder() []string
}

// MessageService is the transport-agnostic core entry point: one inbound
// (sender, text) pair in, one reply text out. The optional preferred provider
// name is tried first by the manager when registered. Errors are classified
// per the domain taxonomy and mapped to user-facing strings by the calling
// layer.
type MessageService interface {
	HandleMessage(ctx context.Context, sender, text, preferred string) (string, error)
}
