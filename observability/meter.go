package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/diconfig/logger"
)

// Build statuses.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusCached = "cached"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by containers.
type Metrics struct {
	buildTotal    metric.Int64Counter
	buildDuration metric.Float64Histogram
	buildActive   metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	buildTotal, err := meter.Int64Counter("di.build.total",
		metric.WithDescription("Total number of service resolutions by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.build.total counter: %w", err)
	}

	buildDuration, err := meter.Float64Histogram("di.build.duration",
		metric.WithDescription("Duration of service builds in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.build.duration histogram: %w", err)
	}

	buildActive, err := meter.Int64UpDownCounter("di.build.active",
		metric.WithDescription("Number of service builds in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.build.active gauge: %w", err)
	}

	return &Metrics{
		buildTotal:    buildTotal,
		buildDuration: buildDuration,
		buildActive:   buildActive,
	}, nil
}

// RecordBuildStart increments the in-progress build count.
func (m *Metrics) RecordBuildStart(ctx context.Context) {
	m.buildActive.Add(ctx, 1)
}

// RecordBuildEnd decrements the in-progress count and records the outcome.
func (m *Metrics) RecordBuildEnd(ctx context.Context, service, status string, duration time.Duration) {
	m.buildActive.Add(ctx, -1)
	m.RecordBuild(ctx, service, status, duration)
}

// RecordBuild records one resolution of service.
func (m *Metrics) RecordBuild(ctx context.Context, service, status string, duration time.Duration) {
	m.buildTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("status", status),
	))
	if status == StatusCached {
		return
	}
	m.buildDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
	))
}
