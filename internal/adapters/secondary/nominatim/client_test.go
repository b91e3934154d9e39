package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
)

func newGeocoderTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL, 0, zap.NewNop())
}

func TestReverseCityAndCountry(t *testing.T) {
	client := newGeocoderTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "London",
			"address": {"city": "London", "state": "England", "country": "United Kingdom"}
		}`))
	})

	label, err := client.Reverse(context.Background(), domain.Coordinates{Latitude: 51.5074, Longitude: -0.1278})

	require.NoError(t, err)
	assert.Equal(t, "London, United Kingdom", label)
}

func TestReverseFallsBackToSmallerPlaces(t *testing.T) {
	client := newGeocoderTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"address": {"village": "Grantchester", "country": "United Kingdom"}
		}`))
	})

	label, err := client.Reverse(context.Background(), domain.Coordinates{Latitude: 52.18, Longitude: 0.1})

	require.NoError(t, err)
	assert.Equal(t, "Grantchester, United Kingdom", label)
}

func TestReverseNoUsableName(t *testing.T) {
	client := newGeocoderTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address": {}}`))
	})

	_, err := client.Reverse(context.Background(), domain.Coordinates{Latitude: 0, Longitude: 0})

	assert.Error(t, err)
}

func TestReverseUpstreamError(t *testing.T) {
	client := newGeocoderTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Reverse(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	assert.ErrorContains(t, err, "status 429")
}

func TestReverseTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, 20*time.Millisecond, zap.NewNop())

	_, err := client.Reverse(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	assert.Error(t, err)
}
