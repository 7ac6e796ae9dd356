// Package telemetry wires up OpenTelemetry tracing for unit controllers.
// Tracing is off unless PACKML_OTEL_ENABLED is set; spans around state
// transitions and state actions become no-ops in that case.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceName    = "packml"
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second
)

var tracerProvider *sdktrace.TracerProvider

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `env:"PACKML_OTEL_SERVICE_NAME"`
	ServiceVersion string        `env:"PACKML_OTEL_SERVICE_VERSION"`
	Environment    string        `env:"PACKML_OTEL_ENVIRONMENT"`
	Endpoint       string        `env:"PACKML_OTEL_ENDPOINT"`
	Enabled        bool          `env:"PACKML_OTEL_ENABLED"`
	Timeout        time.Duration `env:"PACKML_OTEL_TIMEOUT"`
}

// LoadConfigFromEnv loads the OpenTelemetry configuration from environment
// variables, filling in defaults for anything unset.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		ServiceName:    defaultServiceName,
		ServiceVersion: defaultServiceVersion,
		Timeout:        defaultTimeout,
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse telemetry environment: %w", err)
	}

	return cfg, nil
}

// Initialize sets up OpenTelemetry tracing with the given configuration.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry tracing is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
	)

	return nil
}

// Shutdown flushes and stops the tracer provider, if one was installed.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry tracer provider")

	return tracerProvider.Shutdown(ctx)
}
