package openmeteo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
)

type MockReverseGeocoder struct {
	mock.Mock
}

func (m *MockReverseGeocoder) Reverse(ctx context.Context, coords domain.Coordinates) (string, error) {
	args := m.Called(ctx, coords)
	return args.String(0), args.Error(1)
}

// openMeteoPayload builds a forecast response with hourly rows starting at
// the current hour, spaced one hour apart.
func openMeteoPayload(currentHour time.Time, rows int) string {
	times := make([]string, 0, rows)
	temps := make([]string, 0, rows)
	apparent := make([]string, 0, rows)
	humidity := make([]string, 0, rows)
	codes := make([]string, 0, rows)

	for i := 0; i < rows; i++ {
		ts := currentHour.Add(time.Duration(i) * time.Hour)
		times = append(times, fmt.Sprintf("%q", ts.Format("2006-01-02T15:04")))
		temps = append(temps, fmt.Sprintf("%.1f", 15.0+float64(i)))
		apparent = append(apparent, fmt.Sprintf("%.1f", 13.0+float64(i)))
		humidity = append(humidity, "60")
		codes = append(codes, "0")
	}

	return fmt.Sprintf(`{
		"latitude": 51.5,
		"longitude": -0.12,
		"elevation": 10,
		"generationtime_ms": 0.5,
		"current_weather": {
			"temperature": 15.0,
			"windspeed": 4.2,
			"winddirection": 180,
			"weathercode": 0,
			"time": %q
		},
		"hourly_units": {"temperature_2m": "°C"},
		"hourly": {
			"time": [%s],
			"temperature_2m": [%s],
			"apparent_temperature": [%s],
			"relative_humidity_2m": [%s],
			"weather_code": [%s]
		}
	}`,
		currentHour.Format("2006-01-02T15:04"),
		strings.Join(times, ","),
		strings.Join(temps, ","),
		strings.Join(apparent, ","),
		strings.Join(humidity, ","),
		strings.Join(codes, ","))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(nil, zap.NewNop())
	require.NoError(t, err)
	client.SetBaseURL(server.URL)

	return client, server
}

func TestOpenMeteoName(t *testing.T) {
	client, err := NewClient(nil, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "openmeteo", client.Name())
}

func TestOpenMeteoGetForecast(t *testing.T) {
	currentHour := time.Now().UTC().Truncate(time.Hour)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoPayload(currentHour, 12)))
	})

	forecast, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	require.NoError(t, err)
	assert.Equal(t, "51.5000,-0.1200", forecast.Location)
	assert.Equal(t, 15.0, forecast.Current.Temperature)
	assert.Equal(t, 13.0, forecast.Current.FeelsLike)
	assert.Equal(t, 60, forecast.Current.Humidity)
	assert.Equal(t, "Clear sky", forecast.Current.Description)

	require.Len(t, forecast.Hourly, 3)
	assert.Equal(t, currentHour.Add(3*time.Hour).Unix(), forecast.Hourly[0].Timestamp)
	assert.Equal(t, currentHour.Add(6*time.Hour).Unix(), forecast.Hourly[1].Timestamp)
	assert.Equal(t, currentHour.Add(9*time.Hour).Unix(), forecast.Hourly[2].Timestamp)
	assert.True(t, forecast.Hourly[0].Timestamp < forecast.Hourly[1].Timestamp)
	assert.GreaterOrEqual(t, forecast.Summary.High, forecast.Summary.Low)
}

func TestOpenMeteoShortSeriesTruncatesWindow(t *testing.T) {
	currentHour := time.Now().UTC().Truncate(time.Hour)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoPayload(currentHour, 5)))
	})

	forecast, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	require.NoError(t, err)
	assert.Len(t, forecast.Hourly, 1)
}

func TestOpenMeteoMissingHourlySeries(t *testing.T) {
	currentHour := time.Now().UTC().Truncate(time.Hour)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"latitude": 51.5, "longitude": -0.12, "elevation": 10, "generationtime_ms": 0.5,
			"current_weather": {"temperature": 15.0, "windspeed": 4.2, "winddirection": 180, "weathercode": 0, "time": %q},
			"hourly_units": {}, "hourly": {"time": []}
		}`, currentHour.Format("2006-01-02T15:04"))
	})

	_, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	var responseErr *domain.ProviderResponseError

	require.ErrorAs(t, err, &responseErr)
	assert.Equal(t, "openmeteo", responseErr.Provider)
}

func TestOpenMeteoTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client.fetchTimeout = 20 * time.Millisecond

	_, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	var timeoutErr *domain.ProviderTimeoutError

	assert.ErrorAs(t, err, &timeoutErr)
}

func TestOpenMeteoUpstreamFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	assert.Error(t, err)
}

func TestOpenMeteoReverseGeocodedLocation(t *testing.T) {
	currentHour := time.Now().UTC().Truncate(time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoPayload(currentHour, 12)))
	}))
	defer server.Close()

	geocoder := new(MockReverseGeocoder)
	geocoder.On("Reverse", mock.Anything, mock.Anything).Return("London, GB", nil)

	client, err := NewClient(geocoder, zap.NewNop())
	require.NoError(t, err)
	client.SetBaseURL(server.URL)

	forecast, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	require.NoError(t, err)
	assert.Equal(t, "London, GB", forecast.Location)
}

func TestOpenMeteoGeocoderFailureFallsBackToCoordinates(t *testing.T) {
	currentHour := time.Now().UTC().Truncate(time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoPayload(currentHour, 12)))
	}))
	defer server.Close()

	geocoder := new(MockReverseGeocoder)
	geocoder.On("Reverse", mock.Anything, mock.Anything).Return("", assert.AnError)

	client, err := NewClient(geocoder, zap.NewNop())
	require.NoError(t, err)
	client.SetBaseURL(server.URL)

	forecast, err := client.GetForecast(context.Background(), domain.Coordinates{Latitude: 51.5, Longitude: -0.12})

	require.NoError(t, err)
	assert.Equal(t, "51.5000,-0.1200", forecast.Location)
}

func TestOpenMeteoIsAvailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// A 4xx still proves the endpoint is reachable.
		w.WriteHeader(http.StatusBadRequest)
	})

	assert.True(t, client.IsAvailable(context.Background()))

	client.SetBaseURL("http://127.0.0.1:1")
	assert.False(t, client.IsAvailable(context.Background()))
}
