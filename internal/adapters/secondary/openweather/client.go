// Package openweather implements the weather provider contract for the
// OpenWeather 5-day/3-hour forecast API.
package openweather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
)

const (
	// Name is the stable provider identifier used in configuration,
	// priority hints, and diagnostics.
	Name = "openweather"

	defaultBaseURL   = "https://api.openweathermap.org"
	forecastEndpoint = "/data/2.5/forecast"

	defaultFetchTimeout = 5 * time.Second
	defaultProbeTimeout = 2 * time.Second

	// intervalCount covers a twelve hour window: the current reading
	// plus three further 3-hour steps.
	intervalCount = 4

	userAgent = "textcast/1.0"
)

// Client implements ports.WeatherProvider for OpenWeather.
type Client struct {
	client       *resty.Client
	apiKey       string
	probeTimeout time.Duration
	logger       *zap.Logger
}

// NewClient creates the OpenWeather adapter. An empty baseURL falls back to
// the public API endpoint; a zero timeout falls back to the default bound.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout)

	return &Client{
		client:       client,
		apiKey:       apiKey,
		probeTimeout: defaultProbeTimeout,
		logger:       logger,
	}
}

// forecastResponse is the subset of the OpenWeather forecast payload the
// adapter consumes.
type forecastResponse struct {
	List []forecastEntry `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

type forecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []weatherCondition `json:"weather"`
}

type weatherCondition struct {
	Main string `json:"main"`
}

// apiError is OpenWeather's error envelope.
type apiError struct {
	Message string `json:"message"`
}

// Name returns the stable provider identifier.
func (c *Client) Name() string {
	return Name
}

// IsAvailable probes the forecast endpoint with a short timeout. Any HTTP
// response counts as reachable, including auth rejections; the probe checks
// transport reachability, not credentials.
func (c *Client) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	_, err := c.client.R().SetContext(probeCtx).Get(forecastEndpoint)

	if err != nil {
		c.logger.Debug("openweather probe failed", zap.Error(err))

		return false
	}

	return true
}

// GetForecast fetches a 3-hour-step forecast and normalizes it: the first
// list entry becomes the current conditions, the next three the hourly
// window.
func (c *Client) GetForecast(ctx context.Context, coords domain.Coordinates) (*domain.StandardizedForecast, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.client.GetClient().Timeout)
	defer cancel()

	var (
		payload forecastResponse
		apiErr  apiError
	)

	resp, err := c.client.R().
		SetContext(fetchCtx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", coords.Latitude),
			"lon":   fmt.Sprintf("%f", coords.Longitude),
			"appid": c.apiKey,
			"units": "metric",
			"cnt":   fmt.Sprintf("%d", intervalCount),
		}).
		SetResult(&payload).
		SetError(&apiErr).
		Get(forecastEndpoint)

	if err != nil {
		if isTimeout(err) {
			return nil, &domain.ProviderTimeoutError{Provider: Name, Timeout: c.client.GetClient().Timeout}
		}

		return nil, &domain.ProviderGenericError{Provider: Name, Detail: "forecast request failed", Cause: err}
	}

	if resp.IsError() {
		detail := strings.TrimSpace(apiErr.Message)

		if detail == "" {
			detail = "upstream request rejected"
		}

		return nil, &domain.ProviderResponseError{Provider: Name, Status: resp.StatusCode(), Detail: detail}
	}

	if len(payload.List) == 0 {
		return nil, &domain.ProviderResponseError{
			Provider: Name,
			Status:   resp.StatusCode(),
			Detail:   "no forecast entries in response",
		}
	}

	first := payload.List[0]
	current := domain.CurrentConditions{
		Temperature: first.Main.Temp,
		FeelsLike:   first.Main.FeelsLike,
		Humidity:    first.Main.Humidity,
		Description: condition(first.Weather),
	}

	// cnt caps the response server-side, but the window is enforced here
	// too so a misbehaving upstream cannot widen it.
	var hourly []domain.HourlyEntry

	for _, entry := range payload.List[1:] {
		if len(hourly) == intervalCount-1 {
			break
		}

		hourly = append(hourly, domain.HourlyEntry{
			Timestamp:   entry.Dt,
			Temperature: entry.Main.Temp,
			Description: condition(entry.Weather),
		})
	}

	return &domain.StandardizedForecast{
		Location: locationName(payload, coords),
		Current:  current,
		Hourly:   hourly,
		Summary:  domain.NewSummary(current, hourly),
	}, nil
}

func condition(weather []weatherCondition) string {
	if len(weather) == 0 || weather[0].Main == "" {
		return "Unknown conditions"
	}

	return weather[0].Main
}

func locationName(payload forecastResponse, coords domain.Coordinates) string {
	if payload.City.Name == "" {
		return coords.String()
	}

	if payload.City.Country == "" {
		return payload.City.Name
	}

	return payload.City.Name + ", " + payload.City.Country
}

// isTimeout reports whether a resty transport error was caused by the
// request deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var urlErr *url.Error

	return errors.As(err, &urlErr) && urlErr.Timeout()
}
