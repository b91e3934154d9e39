// Package nominatim turns coordinates into a short human-readable place label
// using a Nominatim-compatible reverse geocoding API. The label is cosmetic;
// callers fall back to raw coordinates when it cannot be produced.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	defaultTimeout = 2 * time.Second

	// Nominatim's usage policy requires an identifying User-Agent.
	userAgent = "textcast/1.0"
)

// Client implements ports.ReverseGeocoder.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates the reverse geocoder. An empty baseURL falls back to the
// public endpoint; a zero timeout falls back to the default bound.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger,
	}
}

type reverseResponse struct {
	Name    string `json:"name"`
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
}

// Reverse returns a "Place, Country" label for coords. Any failure returns an
// error; the caller decides how to degrade.
func (c *Client) Reverse(ctx context.Context, coords domain.Coordinates) (string, error) {
	reverseCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%.6f&lon=%.6f",
		c.baseURL, coords.Latitude, coords.Longitude)

	req, err := http.NewRequestWithContext(reverseCtx, http.MethodGet, endpoint, nil)

	if err != nil {
		return "", fmt.Errorf("failed to create reverse geocode request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return "", fmt.Errorf("reverse geocode request failed: %w", err)
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode returned status %d", resp.StatusCode)
	}

	var payload reverseResponse

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}

	label := buildLabel(payload)

	if label == "" {
		return "", fmt.Errorf("reverse geocode response had no usable place name")
	}

	return label, nil
}

// buildLabel picks the most specific populated place available, then appends
// the country when both are present.
func buildLabel(payload reverseResponse) string {
	place := firstNonEmpty(
		payload.Address.City,
		payload.Address.Town,
		payload.Address.Village,
		payload.Address.Municipality,
		payload.Address.County,
		payload.Address.State,
		payload.Name,
	)

	switch {
	case place != "" && payload.Address.Country != "":
		return place + ", " + payload.Address.Country
	case place != "":
		return place
	default:
		return payload.Address.Country
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

var _ ports.ReverseGeocoder = (*Client)(nil)
