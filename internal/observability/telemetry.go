// Package observability initializes tracing and metrics for the service:
// an OTLP/gRPC trace exporter and a Prometheus meter, plus the counters and
// histograms the message pipeline records against.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	logger         *zap.Logger

	// Metrics
	RequestCounter         metric.Int64Counter
	RequestDuration        metric.Float64Histogram
	ErrorCounter           metric.Int64Counter
	MessageCounter         metric.Int64Counter
	ProviderAttemptCounter metric.Int64Counter
	DeliveryCounter        metric.Int64Counter
	CacheHitCounter        metric.Int64Counter
	CacheMissCounter       metric.Int64Counter
}

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

func InitTelemetry(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer provider: %w", err)
	}

	meterProvider, err := initMeterProvider(res)
	if err != nil {
		return nil, fmt.Errorf("failed to init meter provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meter := meterProvider.Meter(cfg.ServiceName)

	requestCounter, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	messageCounter, err := meter.Int64Counter(
		"messages_total",
		metric.WithDescription("Total number of inbound messages processed, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	providerAttemptCounter, err := meter.Int64Counter(
		"provider_attempts_total",
		metric.WithDescription("Total number of weather provider attempts, by provider and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	deliveryCounter, err := meter.Int64Counter(
		"delivery_total",
		metric.WithDescription("Total number of outbound reply deliveries, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCounter, err := meter.Int64Counter(
		"cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCounter, err := meter.Int64Counter(
		"cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		TracerProvider:         tracerProvider,
		MeterProvider:          meterProvider,
		Tracer:                 tracerProvider.Tracer(cfg.ServiceName),
		Meter:                  meter,
		logger:                 logger,
		RequestCounter:         requestCounter,
		RequestDuration:        requestDuration,
		ErrorCounter:           errorCounter,
		MessageCounter:         messageCounter,
		ProviderAttemptCounter: providerAttemptCounter,
		DeliveryCounter:        deliveryCounter,
		CacheHitCounter:        cacheHitCounter,
		CacheMissCounter:       cacheMissCounter,
	}, nil
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)

	return tp, nil
}

func initMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return mp, nil
}

func (t *Telemetry) RecordRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	}

	t.RequestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.RequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if statusCode >= 400 {
		t.ErrorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordMessage counts one processed inbound message. Outcome is one of
// "forecast", "guidance", "location_error", "provider_error", "timeout" or
// "internal_error".
func (t *Telemetry) RecordMessage(ctx context.Context, outcome string) {
	t.MessageCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordProviderAttempt counts one provider fetch attempt during failover.
func (t *Telemetry) RecordProviderAttempt(ctx context.Context, provider, outcome string) {
	t.ProviderAttemptCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordDelivery counts one outbound reply transmission.
func (t *Telemetry) RecordDelivery(ctx context.Context, outcome string) {
	t.DeliveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (t *Telemetry) RecordCacheHit(ctx context.Context, key string) {
	t.CacheHitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}

func (t *Telemetry) RecordCacheMiss(ctx context.Context, key string) {
	t.CacheMissCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
