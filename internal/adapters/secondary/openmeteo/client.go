// Package openmeteo implements the weather provider contract on top of the
// Open-Meteo forecast API via the omgo client. Open-Meteo is keyless and
// supplies no place name, so the adapter consults an optional reverse
// geocoder and degrades to rendering raw coordinates when that fails.
package openmeteo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/hectormalot/omgo"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

const (
	// Name is the stable provider identifier used in configuration,
	// priority hints, and diagnostics.
	Name = "openmeteo"

	defaultFetchTimeout = 5 * time.Second
	defaultProbeTimeout = 2 * time.Second

	// hourlyStep spaces the returned entries three hours apart;
	// hourlyCount keeps the window at roughly twelve hours.
	hourlyStep  = 3
	hourlyCount = 3
)

// hourlyMetrics are the series requested from Open-Meteo. The current
// reading is joined with the hourly row matching the current hour.
var hourlyMetrics = []string{"temperature_2m", "apparent_temperature", "relative_humidity_2m", "weather_code"}

// Client implements ports.WeatherProvider for Open-Meteo.
type Client struct {
	om           omgo.Client
	geocoder     ports.ReverseGeocoder
	httpClient   *http.Client
	probeURL     string
	fetchTimeout time.Duration
	probeTimeout time.Duration
	logger       *zap.Logger
}

// NewClient creates the Open-Meteo adapter. The geocoder may be nil; the
// adapter then always labels forecasts with raw coordinates.
func NewClient(geocoder ports.ReverseGeocoder, logger *zap.Logger) (*Client, error) {
	om, err := omgo.NewClient()

	if err != nil {
		return nil, err
	}

	return &Client{
		om:           om,
		geocoder:     geocoder,
		httpClient:   &http.Client{},
		probeURL:     om.URL,
		fetchTimeout: defaultFetchTimeout,
		probeTimeout: defaultProbeTimeout,
		logger:       logger,
	}, nil
}

// SetBaseURL points both the forecast client and the availability probe at a
// different endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.om.URL = url
	c.probeURL = url
}

// Name returns the stable provider identifier.
func (c *Client) Name() string {
	return Name
}

// IsAvailable probes the forecast endpoint with a short timeout. Any HTTP
// response counts as reachable; only transport failures report false.
func (c *Client) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.probeURL, nil)

	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)

	if err != nil {
		c.logger.Debug("open-meteo probe failed", zap.Error(err))

		return false
	}

	_ = resp.Body.Close()

	return true
}

// GetForecast fetches and normalizes an Open-Meteo forecast. The current
// conditions join the current-weather reading with the hourly row for the
// same hour; the hourly entries are the rows three, six, and nine hours
// later, as far as the returned series reaches.
func (c *Client) GetForecast(ctx context.Context, coords domain.Coordinates) (*domain.StandardizedForecast, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	loc, err := omgo.NewLocation(coords.Latitude, coords.Longitude)

	if err != nil {
		return nil, &domain.ProviderGenericError{Provider: Name, Detail: "invalid location", Cause: err}
	}

	forecast, err := c.om.Forecast(fetchCtx, loc, &omgo.Options{
		Timezone:        "UTC",
		TemperatureUnit: "celsius",
		HourlyMetrics:   hourlyMetrics,
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.ProviderTimeoutError{Provider: Name, Timeout: c.fetchTimeout}
		}

		// omgo does not surface upstream status codes, so every other
		// client failure is reported as a generic transport error.
		return nil, &domain.ProviderGenericError{Provider: Name, Detail: "forecast request failed", Cause: err}
	}

	return c.normalize(ctx, coords, forecast)
}

func (c *Client) normalize(ctx context.Context, coords domain.Coordinates, forecast *omgo.Forecast) (*domain.StandardizedForecast, error) {
	temps := forecast.HourlyMetrics["temperature_2m"]
	apparent := forecast.HourlyMetrics["apparent_temperature"]
	humidity := forecast.HourlyMetrics["relative_humidity_2m"]
	codes := forecast.HourlyMetrics["weather_code"]

	rows := len(forecast.HourlyTimes)

	if rows == 0 || len(temps) < rows || len(apparent) < rows || len(humidity) < rows || len(codes) < rows {
		return nil, &domain.ProviderResponseError{
			Provider: Name,
			Status:   http.StatusOK,
			Detail:   "hourly series missing from response",
		}
	}

	currentHour := forecast.CurrentWeather.Time.Time.UTC().Truncate(time.Hour)
	idx := -1

	for i, t := range forecast.HourlyTimes {
		if t.Equal(currentHour) {
			idx = i
			break
		}
	}

	if idx < 0 {
		return nil, &domain.ProviderResponseError{
			Provider: Name,
			Status:   http.StatusOK,
			Detail:   "no hourly row matches the current reading",
		}
	}

	current := domain.CurrentConditions{
		Temperature: forecast.CurrentWeather.Temperature,
		FeelsLike:   apparent[idx],
		Humidity:    int(math.Round(humidity[idx])),
		Description: conditionForCode(int(forecast.CurrentWeather.WeatherCode)),
	}

	var hourly []domain.HourlyEntry

	for step := 1; step <= hourlyCount; step++ {
		j := idx + step*hourlyStep

		if j >= rows {
			break
		}

		hourly = append(hourly, domain.HourlyEntry{
			Timestamp:   forecast.HourlyTimes[j].Unix(),
			Temperature: temps[j],
			Description: conditionForCode(int(codes[j])),
		})
	}

	return &domain.StandardizedForecast{
		Location: c.locationName(ctx, coords),
		Current:  current,
		Hourly:   hourly,
		Summary:  domain.NewSummary(current, hourly),
	}, nil
}

// locationName asks the reverse geocoder for a place label and falls back to
// the raw coordinate string. Geocoding failures never fail the forecast.
func (c *Client) locationName(ctx context.Context, coords domain.Coordinates) string {
	if c.geocoder == nil {
		return coords.String()
	}

	name, err := c.geocoder.Reverse(ctx, coords)

	if err != nil || name == "" {
		c.logger.Debug("reverse geocoding failed, using coordinates",
			zap.Float64("latitude", coords.Latitude),
			zap.Float64("longitude", coords.Longitude),
			zap.Error(err))

		return coords.String()
	}

	return name
}
