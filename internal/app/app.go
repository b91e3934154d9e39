// Package app provides application-level coordination and dependency
// injection. It wires the location parser, the weather provider fleet, the
// failover manager, and the delivery gateway together, manages their
// lifecycles, and owns the HTTP router.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/adapters/primary/rest"
	"github.com/textcast/textcast/internal/adapters/secondary/nominatim"
	"github.com/textcast/textcast/internal/adapters/secondary/openmeteo"
	"github.com/textcast/textcast/internal/adapters/secondary/openweather"
	"github.com/textcast/textcast/internal/adapters/secondary/smsgateway"
	"github.com/textcast/textcast/internal/adapters/secondary/weatherapi"
	"github.com/textcast/textcast/internal/adapters/secondary/what3words"
	"github.com/textcast/textcast/internal/config"
	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
	"github.com/textcast/textcast/internal/core/services"
	"github.com/textcast/textcast/internal/infrastructure/cache"
	"github.com/textcast/textcast/internal/infrastructure/circuitbreaker"
	"github.com/textcast/textcast/internal/infrastructure/ratelimit"
	"github.com/textcast/textcast/internal/middleware"
	"github.com/textcast/textcast/internal/observability"
	"github.com/textcast/textcast/internal/version"
)

// Server represents the HTTP server instance.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// App manages the application lifecycle and dependencies.
type App struct {
	cfg       *config.Config
	server    *Server
	logger    *zap.Logger
	telemetry *observability.Telemetry
	breakers  *circuitbreaker.Manager
	manager   ports.ForecastManager
}

// New creates a new application instance.
func New() (*App, error) {
	cfg := config.Load()

	logger, err := buildLogger(cfg.Server.Environment, cfg.Server.LogLevel)

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

func buildLogger(environment, level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()

	if environment == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		zapCfg.Level = parsed
	}

	return zapCfg.Build()
}

// Start initializes and starts all application components.
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	cacheService, rateLimitService := a.initRedisServices(ctx)
	cacheService = newInstrumentedCache(cacheService, a.telemetry)

	a.breakers = circuitbreaker.NewManager(a.logger)

	providers, err := a.buildProviders()

	if err != nil {
		return err
	}

	manager, err := services.NewProviderManager(providers, a.cfg.Providers.Priority, a.logger)

	if err != nil {
		return fmt.Errorf("failed to build provider manager: %w", err)
	}

	a.manager = manager

	parser := services.NewLocationParser(
		a.buildWordsResolver(cacheService),
		a.cfg.Words.Timeout,
		a.logger,
	)

	messageService := newInstrumentedMessageService(
		services.NewMessageService(
			parser,
			manager,
			cacheService,
			a.cfg.Cache.ReplyTTL,
			a.cfg.Providers.Default,
			a.logger,
		),
		a.telemetry,
	)

	messageHandler := rest.NewMessageHandler(
		messageService,
		a.buildSender(),
		a.cfg.Message.HandlingTimeout,
		a.logger,
	)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.Requests,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(messageHandler, rateLimitMiddleware, a.telemetry)

	a.server = &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			IdleTimeout:  a.cfg.Server.IdleTimeout,
		},
		logger: a.logger,
	}

	go func() {
		a.logger.Info("starting HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		// Sync can fail on some platforms, ignore the error
		_ = err
	}
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// initTelemetry initializes OpenTelemetry providers.
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initRedisServices initializes Redis-based or memory-based cache and rate
// limiting. On any Redis failure both services degrade to their in-memory
// equivalents.
func (a *App) initRedisServices(ctx context.Context) (ports.CacheService, ports.RateLimitService) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using memory-based services")

		memCache := cache.NewMemoryCache(a.cfg.Cache.ReplyTTL, 10*time.Minute, a.logger)
		memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

		return memCache, memRateLimit
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Redis connection failed, falling back to memory-based services", zap.Error(err))

		memCache := cache.NewMemoryCache(a.cfg.Cache.ReplyTTL, 10*time.Minute, a.logger)
		memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

		return memCache, memRateLimit
	}

	a.logger.Info("Redis connected successfully")

	redisCfg := cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}

	cacheService, _ := cache.NewRedisCache(redisCfg, a.logger)
	rateLimitService := ratelimit.NewRedisRateLimiter(redisClient, a.logger)

	return cacheService, rateLimitService
}

// buildProviders constructs every enabled weather provider, each wrapped
// with its own circuit breaker. Registration order fixes the failover order
// for providers not named by the priority hint.
func (a *App) buildProviders() ([]ports.WeatherProvider, error) {
	breakerCfg := circuitbreaker.Config{
		MaxRequests: a.cfg.Breaker.MaxRequests,
		Interval:    a.cfg.Breaker.Interval,
		Timeout:     a.cfg.Breaker.Timeout,
	}

	var providers []ports.WeatherProvider

	if a.cfg.Providers.OpenMeteo.Enabled {
		client, err := openmeteo.NewClient(a.buildGeocoder(), a.logger)

		if err != nil {
			return nil, fmt.Errorf("failed to build openmeteo client: %w", err)
		}

		if a.cfg.Providers.OpenMeteo.BaseURL != "" {
			client.SetBaseURL(a.cfg.Providers.OpenMeteo.BaseURL)
		}

		providers = append(providers, newBreakerProvider(
			client,
			a.breakers.GetBreaker(openmeteo.Name, breakerCfg),
			a.telemetry,
		))
	}

	if a.cfg.Providers.OpenWeather.Enabled {
		client := openweather.NewClient(
			a.cfg.Providers.OpenWeather.BaseURL,
			a.cfg.Providers.OpenWeather.APIKey,
			0,
			a.logger,
		)

		providers = append(providers, newBreakerProvider(
			client,
			a.breakers.GetBreaker(openweather.Name, breakerCfg),
			a.telemetry,
		))
	}

	if a.cfg.Providers.WeatherAPI.Enabled {
		client := weatherapi.NewClient(
			a.cfg.Providers.WeatherAPI.BaseURL,
			a.cfg.Providers.WeatherAPI.APIKey,
			0,
			a.logger,
		)

		providers = append(providers, newBreakerProvider(
			client,
			a.breakers.GetBreaker(weatherapi.Name, breakerCfg),
			a.telemetry,
		))
	}

	if len(providers) == 0 {
		return nil, errors.New("no weather providers enabled")
	}

	return providers, nil
}

// buildGeocoder returns the reverse geocoder labeling forecasts with place
// names, or nil when disabled.
func (a *App) buildGeocoder() ports.ReverseGeocoder {
	if !a.cfg.Geocoder.Enabled {
		return nil
	}

	return nominatim.NewClient(a.cfg.Geocoder.BaseURL, a.cfg.Geocoder.Timeout, a.logger)
}

// buildWordsResolver returns the three-word-address resolver, cached through
// cacheService. Without an API key resolution is disabled and three-word
// addresses answer with a configuration notice.
func (a *App) buildWordsResolver(cacheService ports.CacheService) ports.WordsResolver {
	if a.cfg.Words.APIKey == "" {
		a.logger.Warn("no what3words API key configured, three word address lookups disabled")

		return disabledWordsResolver{}
	}

	client := what3words.NewClient(
		a.cfg.Words.BaseURL,
		a.cfg.Words.APIKey,
		a.cfg.Words.Timeout,
		a.logger,
	)

	return what3words.NewCachedResolver(
		client,
		cacheService,
		a.cfg.Cache.WordsHitTTL,
		a.cfg.Cache.WordsMissTTL,
		a.logger,
	)
}

// buildSender returns the outbound SMS sender, or nil when no gateway
// account is configured and replies are webhook-only.
func (a *App) buildSender() ports.MessageSender {
	if a.cfg.Gateway.AccountSID == "" {
		a.logger.Info("no SMS gateway configured, replies are webhook-only")

		return nil
	}

	sender := smsgateway.NewSender(smsgateway.Config{
		BaseURL:           a.cfg.Gateway.BaseURL,
		AccountSID:        a.cfg.Gateway.AccountSID,
		AuthToken:         a.cfg.Gateway.AuthToken,
		FromNumber:        a.cfg.Gateway.FromNumber,
		SendTimeout:       a.cfg.Gateway.SendTimeout,
		MessagesPerSecond: a.cfg.Gateway.MessagesPerSecond,
		Burst:             a.cfg.Gateway.Burst,
	}, a.logger)

	return newInstrumentedSender(sender, a.telemetry)
}

// disabledWordsResolver answers every lookup with a configuration notice.
type disabledWordsResolver struct{}

func (disabledWordsResolver) Resolve(_ context.Context, _ string) (domain.Coordinates, error) {
	return domain.Coordinates{}, &domain.LocationLookupError{
		Message: "three word address lookups are not available right now, please send coordinates instead",
	}
}

// setupRouter creates and configures the HTTP router with all middleware.
func (a *App) setupRouter(
	messageHandler *rest.MessageHandler,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	telemetry *observability.Telemetry,
) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/health/ready", a.handleReady).Methods("GET")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
			a.logger.Error("failed to encode version info", zap.Error(err))
		}
	}).Methods("GET")

	router.HandleFunc("/stats", a.handleStats).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
		router.Use(obsMiddleware.LoggingMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	if rateLimitMiddleware != nil {
		api.Use(rateLimitMiddleware.Middleware)
	}

	api.HandleFunc("/messages", messageHandler.HandleMessage).Methods("POST")

	return router
}

// handleReady reports readiness: the service can answer once the provider
// manager exists with at least one registered provider.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.manager == nil || len(a.manager.PriorityOrder()) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no providers registered"))

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleStats exposes the failover diagnostics: the provider that served the
// most recent forecast, the fixed priority order, and breaker states.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"active_provider":  a.manager.ActiveProvider(),
		"priority_order":   a.manager.PriorityOrder(),
		"circuit_breakers": a.breakers.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		a.logger.Error("failed to encode stats", zap.Error(err))
	}
}
