// Package what3words resolves three-word addresses to coordinates through a
// what3words-compatible HTTP API, with an optional caching decorator since
// word addresses never move.
package what3words

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

const (
	defaultBaseURL = "https://api.what3words.com"
	defaultTimeout = 5 * time.Second

	userAgent = "textcast/1.0"
)

// Client implements ports.WordsResolver against the convert-to-coordinates
// endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates the words resolver. An empty baseURL falls back to the
// public endpoint; a zero timeout falls back to the default bound.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger,
	}
}

// resolveResponse uses pointers for the coordinate fields so an absent value
// is distinguishable from zero.
type resolveResponse struct {
	Coordinates *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"coordinates"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Resolve converts a three-word address into coordinates. Every failure mode
// surfaces as a LocationLookupError whose message is safe to show to the
// sender.
func (c *Client) Resolve(ctx context.Context, words string) (domain.Coordinates, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v3/convert-to-coordinates?words=%s", c.baseURL, url.QueryEscape(words))

	req, err := http.NewRequestWithContext(resolveCtx, http.MethodGet, endpoint, nil)

	if err != nil {
		return domain.Coordinates{}, &domain.LocationLookupError{
			Message: "could not look up that three word address",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Coordinates{}, &domain.LocationLookupError{
				Message: "the three word address lookup timed out, please try again",
				Cause:   err,
			}
		}

		return domain.Coordinates{}, &domain.LocationLookupError{
			Message: "could not look up that three word address",
			Cause:   err,
		}
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	var payload resolveResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode != http.StatusOK {
		message := "could not find that three word address"

		if payload.Error != nil && payload.Error.Message != "" {
			message = payload.Error.Message
		}

		c.logger.Info("words resolution rejected",
			zap.String("words", words),
			zap.Int("status", resp.StatusCode))

		lookupErr := &domain.LocationLookupError{Message: message}

		// Server-side failures keep their cause so callers can tell a
		// transient outage from a definitive rejection.
		if resp.StatusCode >= http.StatusInternalServerError {
			lookupErr.Cause = fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}

		return domain.Coordinates{}, lookupErr
	}

	if decodeErr != nil {
		return domain.Coordinates{}, &domain.LocationLookupError{
			Message: "malformed upstream response",
			Cause:   decodeErr,
		}
	}

	if payload.Coordinates == nil || payload.Coordinates.Lat == nil || payload.Coordinates.Lng == nil {
		return domain.Coordinates{}, &domain.LocationLookupError{
			Message: "malformed upstream response",
			Cause:   fmt.Errorf("response missing coordinates"),
		}
	}

	return domain.Coordinates{
		Latitude:  *payload.Coordinates.Lat,
		Longitude: *payload.Coordinates.Lng,
	}, nil
}

// Ensure the decorator keeps satisfying the port.
var _ ports.WordsResolver = (*Client)(nil)
