// Package config provides centralized configuration management for the
// service. It loads configuration from environment variables with sensible
// defaults, reading a .env file first when one is present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration settings for the service, from the HTTP
// server through the weather providers to the outbound SMS gateway.
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Breaker       BreakerConfig
	Providers     ProvidersConfig
	Words         WordsConfig
	Geocoder      GeocoderConfig
	Gateway       GatewayConfig
	Message       MessageConfig
}

// ServerConfig contains HTTP server settings and timeouts.
type ServerConfig struct {
	Port         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig contains settings for Redis cache and rate limiting. Redis is
// shared state across instances; when disabled or unreachable the service
// degrades to in-memory equivalents.
type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheConfig contains TTLs for the reply cache and the three-word-address
// resolution cache.
type CacheConfig struct {
	ReplyTTL     time.Duration
	WordsHitTTL  time.Duration
	WordsMissTTL time.Duration
}

// ObservabilityConfig contains settings for distributed tracing and metrics.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// RateLimitConfig contains inbound per-client rate limiting settings.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// BreakerConfig contains the circuit breaker thresholds applied per weather
// provider.
type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// ProviderConfig contains settings for one weather provider.
type ProviderConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
}

// ProvidersConfig contains settings for the weather provider fleet.
// Priority is a comma-separated list of provider names that fixes the front
// of the failover order; Default names the provider preferred when a request
// carries no preference.
type ProvidersConfig struct {
	Priority    string
	Default     string
	OpenMeteo   ProviderConfig
	OpenWeather ProviderConfig
	WeatherAPI  ProviderConfig
}

// WordsConfig contains settings for the three-word-address resolver.
type WordsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GeocoderConfig contains settings for the reverse geocoder that labels
// forecasts with a place name.
type GeocoderConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// GatewayConfig contains settings for the outbound SMS gateway. Without an
// account SID the gateway is disabled and replies are webhook-only.
type GatewayConfig struct {
	BaseURL           string
	AccountSID        string
	AuthToken         string
	FromNumber        string
	SendTimeout       time.Duration
	MessagesPerSecond float64
	Burst             int
}

// MessageConfig contains settings for inbound message handling.
type MessageConfig struct {
	HandlingTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; its absence is not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			ReplyTTL:     getEnvAsDuration("REPLY_CACHE_TTL", 5*time.Minute),
			WordsHitTTL:  getEnvAsDuration("WORDS_CACHE_HIT_TTL", 24*time.Hour),
			WordsMissTTL: getEnvAsDuration("WORDS_CACHE_MISS_TTL", 10*time.Minute),
		},
		Observability: ObservabilityConfig{
			ServiceName:    "textcast",
			ServiceVersion: getEnv("VERSION", "1.0.0"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:     getEnvAsFloat("OTEL_SAMPLE_RATE", 0.1),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Breaker: BreakerConfig{
			MaxRequests: 3,
			Interval:    getEnvAsDuration("BREAKER_INTERVAL", time.Minute),
			Timeout:     getEnvAsDuration("BREAKER_TIMEOUT", 30*time.Second),
		},
		Providers: ProvidersConfig{
			Priority: getEnv("PROVIDER_PRIORITY", ""),
			Default:  getEnv("PROVIDER_DEFAULT", ""),
			OpenMeteo: ProviderConfig{
				Enabled: getEnvAsBool("OPENMETEO_ENABLED", true),
				BaseURL: getEnv("OPENMETEO_BASE_URL", ""),
			},
			OpenWeather: ProviderConfig{
				Enabled: getEnvAsBool("OPENWEATHER_ENABLED", false),
				APIKey:  getEnv("OPENWEATHER_API_KEY", ""),
				BaseURL: getEnv("OPENWEATHER_BASE_URL", ""),
			},
			WeatherAPI: ProviderConfig{
				Enabled: getEnvAsBool("WEATHERAPI_ENABLED", false),
				APIKey:  getEnv("WEATHERAPI_API_KEY", ""),
				BaseURL: getEnv("WEATHERAPI_BASE_URL", ""),
			},
		},
		Words: WordsConfig{
			APIKey:  getEnv("WHAT3WORDS_API_KEY", ""),
			BaseURL: getEnv("WHAT3WORDS_BASE_URL", ""),
			Timeout: getEnvAsDuration("WHAT3WORDS_TIMEOUT", 5*time.Second),
		},
		Geocoder: GeocoderConfig{
			Enabled: getEnvAsBool("GEOCODER_ENABLED", true),
			BaseURL: getEnv("GEOCODER_BASE_URL", ""),
			Timeout: getEnvAsDuration("GEOCODER_TIMEOUT", 2*time.Second),
		},
		Gateway: GatewayConfig{
			BaseURL:           getEnv("SMS_GATEWAY_URL", "https://api.twilio.com"),
			AccountSID:        getEnv("SMS_ACCOUNT_SID", ""),
			AuthToken:         getEnv("SMS_AUTH_TOKEN", ""),
			FromNumber:        getEnv("SMS_FROM_NUMBER", ""),
			SendTimeout:       getEnvAsDuration("SMS_SEND_TIMEOUT", 5*time.Second),
			MessagesPerSecond: getEnvAsFloat("SMS_MESSAGES_PER_SECOND", 1.0),
			Burst:             getEnvAsInt("SMS_BURST", 5),
		},
		Message: MessageConfig{
			HandlingTimeout: getEnvAsDuration("MESSAGE_HANDLING_TIMEOUT", 10*time.Second),
		},
	}
}

// getEnv retrieves an environment variable value with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a
// fallback default.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a
// fallback default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float with a fallback
// default.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}

	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration with a
// fallback default. Values use Go duration syntax, such as "30s" or "5m".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	return defaultValue
}
