package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/adapters/primary/rest"
	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
	"github.com/textcast/textcast/internal/core/services"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{".."},
			Output:   os.Stdout,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type testContext struct {
	server       *httptest.Server
	response     *http.Response
	responseBody map[string]interface{}
	providers    map[string]*stubProvider
	resolver     *stubResolver
	manager      ports.ForecastManager
}

// stubProvider is an in-memory weather provider with a switchable failure
// mode.
type stubProvider struct {
	name    string
	failing bool
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) GetForecast(ctx context.Context, coords domain.Coordinates) (*domain.StandardizedForecast, error) {
	if p.failing {
		return nil, &domain.ProviderGenericError{Provider: p.name, Detail: "upstream failure"}
	}

	current := domain.CurrentConditions{
		Temperature: 15,
		FeelsLike:   14,
		Humidity:    60,
		Description: "Clear",
	}

	base := time.Now().UTC().Truncate(time.Hour)
	hourly := []domain.HourlyEntry{
		{Timestamp: base.Add(3 * time.Hour).Unix(), Temperature: 16, Description: "Clear"},
		{Timestamp: base.Add(6 * time.Hour).Unix(), Temperature: 15, Description: "Cloudy"},
		{Timestamp: base.Add(9 * time.Hour).Unix(), Temperature: 13, Description: "Clear"},
	}

	return &domain.StandardizedForecast{
		Location: coords.String(),
		Current:  current,
		Hourly:   hourly,
		Summary:  domain.NewSummary(current, hourly),
	}, nil
}

// stubResolver maps configured three-word addresses to coordinates.
type stubResolver struct {
	known    map[string]domain.Coordinates
	rejected map[string]bool
}

func (r *stubResolver) Resolve(ctx context.Context, words string) (domain.Coordinates, error) {
	if r.rejected[words] {
		return domain.Coordinates{}, &domain.LocationLookupError{
			Message: fmt.Sprintf("words not recognised: %s", words),
		}
	}

	if coords, ok := r.known[words]; ok {
		return coords, nil
	}

	return domain.Coordinates{}, &domain.LocationLookupError{
		Message: fmt.Sprintf("words not recognised: %s", words),
	}
}

// nopCache always misses so scenarios never share cached replies.
type nopCache struct{}

func (nopCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("miss")
}

func (nopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (nopCache) Delete(ctx context.Context, key string) error { return nil }

func (nopCache) Clear(ctx context.Context) error { return nil }

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &testContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.providers = map[string]*stubProvider{
			"alpha": {name: "alpha"},
			"bravo": {name: "bravo"},
		}
		tc.resolver = &stubResolver{
			known:    make(map[string]domain.Coordinates),
			rejected: make(map[string]bool),
		}
		tc.server = nil
		tc.response = nil
		tc.responseBody = nil

		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc.server != nil {
			tc.server.Close()
		}

		return ctx, nil
	})

	ctx.Step(`^the messaging service is running$`, tc.theMessagingServiceIsRunning)
	ctx.Step(`^the three word address "([^"]*)" resolves to ([\-\d.]+),([\-\d.]+)$`, tc.theThreeWordAddressResolvesTo)
	ctx.Step(`^the three word address "([^"]*)" is not recognised$`, tc.theThreeWordAddressIsNotRecognised)
	ctx.Step(`^the provider "([^"]*)" is failing$`, tc.theProviderIsFailing)
	ctx.Step(`^I send the message "([^"]*)"$`, tc.iSendTheMessage)
	ctx.Step(`^I send a message without a sender$`, tc.iSendAMessageWithoutASender)
	ctx.Step(`^I should receive a successful response$`, tc.iShouldReceiveSuccessfulResponse)
	ctx.Step(`^I should receive a bad request error$`, tc.iShouldReceiveBadRequestError)
	ctx.Step(`^the reply should contain "([^"]*)"$`, tc.theReplyShouldContain)
	ctx.Step(`^the forecast should have been served by "([^"]*)"$`, tc.theForecastShouldHaveBeenServedBy)
}

func (tc *testContext) theMessagingServiceIsRunning() error {
	logger := zap.NewNop()

	manager, err := services.NewProviderManager(
		[]ports.WeatherProvider{tc.providers["alpha"], tc.providers["bravo"]},
		"",
		logger,
	)
	if err != nil {
		return err
	}

	tc.manager = manager

	parser := services.NewLocationParser(tc.resolver, time.Second, logger)
	messageService := services.NewMessageService(parser, manager, nopCache{}, time.Minute, "", logger)
	handler := rest.NewMessageHandler(messageService, nil, 5*time.Second, logger)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/messages", handler.HandleMessage).Methods("POST")

	tc.server = httptest.NewServer(router)
	return nil
}

func (tc *testContext) theThreeWordAddressResolvesTo(words, lat, lng string) error {
	var coords domain.Coordinates

	if _, err := fmt.Sscanf(lat+" "+lng, "%f %f", &coords.Latitude, &coords.Longitude); err != nil {
		return err
	}

	tc.resolver.known[words] = coords
	return nil
}

func (tc *testContext) theThreeWordAddressIsNotRecognised(words string) error {
	tc.resolver.rejected[words] = true
	return nil
}

func (tc *testContext) theProviderIsFailing(name string) error {
	provider, ok := tc.providers[name]
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}

	provider.failing = true
	return nil
}

func (tc *testContext) iSendTheMessage(body string) error {
	payload := map[string]string{
		"from": "+15551234567",
		"body": body,
	}

	return tc.post(payload)
}

func (tc *testContext) iSendAMessageWithoutASender() error {
	return tc.post(map[string]string{"body": "51.5,-0.12"})
}

func (tc *testContext) post(payload map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(tc.server.URL+"/api/v1/messages", "application/json", strings.NewReader(string(data)))
	if err != nil {
		return err
	}

	tc.response = resp
	return json.NewDecoder(resp.Body).Decode(&tc.responseBody)
}

func (tc *testContext) iShouldReceiveSuccessfulResponse() error {
	if tc.response.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200, got %d", tc.response.StatusCode)
	}
	return nil
}

func (tc *testContext) iShouldReceiveBadRequestError() error {
	if tc.response.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("expected status 400, got %d", tc.response.StatusCode)
	}
	return nil
}

func (tc *testContext) theReplyShouldContain(substring string) error {
	reply, ok := tc.responseBody["reply"].(string)
	if !ok {
		return fmt.Errorf("reply not found in response")
	}

	if !strings.Contains(reply, substring) {
		return fmt.Errorf("reply %q does not contain %q", reply, substring)
	}

	return nil
}

func (tc *testContext) theForecastShouldHaveBeenServedBy(name string) error {
	if active := tc.manager.ActiveProvider(); active != name {
		return fmt.Errorf("expected forecast from %q, got %q", name, active)
	}

	return nil
}
