// Package weatherapi implements the weather provider contract for the
// WeatherAPI.com forecast endpoint. This adapter translates coordinate
// requests into API calls and normalizes the hour-step response into the
// standard forecast record.
package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
)

const (
	// Name is the stable provider identifier used in configuration,
	// priority hints, and diagnostics.
	Name = "weatherapi"

	defaultBaseURL      = "https://api.weatherapi.com"
	defaultFetchTimeout = 5 * time.Second
	defaultProbeTimeout = 2 * time.Second

	// WeatherAPI returns 1-hour steps, so the adapter samples every
	// third future hour to match the 3-hour window of the other sources.
	sampleStride = 3
	hourlyCount  = 3

	userAgent = "textcast/1.0"
)

// Client implements ports.WeatherProvider for WeatherAPI.com.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	fetchTimeout time.Duration
	probeTimeout time.Duration
	logger       *zap.Logger

	// now is replaceable in tests to pin the future-hour filter.
	now func() time.Time
}

// NewClient creates a WeatherAPI adapter. An empty baseURL falls back to the
// public endpoint; a zero timeout falls back to the default bound.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{},
		fetchTimeout: timeout,
		probeTimeout: defaultProbeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// forecastResponse is the subset of the WeatherAPI payload the adapter
// consumes.
type forecastResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC      float64 `json:"temp_c"`
		FeelsLikeC float64 `json:"feelslike_c"`
		Humidity   int     `json:"humidity"`
		Condition  struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Hour []hourEntry `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

type hourEntry struct {
	TimeEpoch int64   `json:"time_epoch"`
	TempC     float64 `json:"temp_c"`
	Condition struct {
		Text string `json:"text"`
	} `json:"condition"`
}

// errorResponse is WeatherAPI's error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
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

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/v1/forecast.json", nil)

	if err != nil {
		return false
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)

	if err != nil {
		c.logger.Debug("weatherapi probe failed", zap.Error(err))

		return false
	}

	_ = resp.Body.Close()

	return true
}

// GetForecast fetches a two-day hourly forecast and normalizes it: the
// current block becomes the current conditions, and strictly future hours
// are sampled every three hours into the hourly window.
func (c *Client) GetForecast(ctx context.Context, coords domain.Coordinates) (*domain.StandardizedForecast, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/forecast.json?key=%s&q=%.4f,%.4f&days=2",
		c.baseURL, c.apiKey, coords.Latitude, coords.Longitude)

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)

	if err != nil {
		return nil, &domain.ProviderGenericError{Provider: Name, Detail: "failed to build request", Cause: err}
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.ProviderTimeoutError{Provider: Name, Timeout: c.fetchTimeout}
		}

		return nil, &domain.ProviderGenericError{Provider: Name, Detail: "forecast request failed", Cause: err}
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ProviderResponseError{
			Provider: Name,
			Status:   resp.StatusCode,
			Detail:   upstreamMessage(resp.Body),
		}
	}

	var payload forecastResponse

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.ProviderResponseError{
			Provider: Name,
			Status:   resp.StatusCode,
			Detail:   "undecodable response body",
		}
	}

	if len(payload.Forecast.Forecastday) == 0 {
		return nil, &domain.ProviderResponseError{
			Provider: Name,
			Status:   resp.StatusCode,
			Detail:   "no forecast days in response",
		}
	}

	current := domain.CurrentConditions{
		Temperature: payload.Current.TempC,
		FeelsLike:   payload.Current.FeelsLikeC,
		Humidity:    payload.Current.Humidity,
		Description: payload.Current.Condition.Text,
	}

	hourly := c.sampleFutureHours(payload)

	return &domain.StandardizedForecast{
		Location: locationName(payload, coords),
		Current:  current,
		Hourly:   hourly,
		Summary:  domain.NewSummary(current, hourly),
	}, nil
}

// sampleFutureHours flattens the per-day hour lists, keeps strictly future
// entries, and samples them at the stride, starting one stride ahead so the
// first entry sits about three hours out.
func (c *Client) sampleFutureHours(payload forecastResponse) []domain.HourlyEntry {
	cutoff := c.now().Unix()

	var future []hourEntry

	for _, day := range payload.Forecast.Forecastday {
		for _, hour := range day.Hour {
			if hour.TimeEpoch > cutoff {
				future = append(future, hour)
			}
		}
	}

	var hourly []domain.HourlyEntry

	for i := sampleStride - 1; i < len(future) && len(hourly) < hourlyCount; i += sampleStride {
		hourly = append(hourly, domain.HourlyEntry{
			Timestamp:   future[i].TimeEpoch,
			Temperature: future[i].TempC,
			Description: future[i].Condition.Text,
		})
	}

	return hourly
}

func locationName(payload forecastResponse, coords domain.Coordinates) string {
	if payload.Location.Name == "" {
		return coords.String()
	}

	if payload.Location.Country == "" {
		return payload.Location.Name
	}

	return payload.Location.Name + ", " + payload.Location.Country
}

// upstreamMessage extracts the error message from a failed response body,
// degrading to a generic detail when the body is not the expected envelope.
func upstreamMessage(body io.Reader) string {
	var payload errorResponse

	if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Error.Message == "" {
		return "upstream request rejected"
	}

	return payload.Error.Message
}
