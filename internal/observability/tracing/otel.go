// Package tracing installs the OpenTelemetry tracer provider behind the
// service spans and the HTTP tracing middleware.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"adherence-tracker/internal/config"
)

// Settings describe the running server as it appears on exported spans
type Settings struct {
	Telemetry   config.TelemetryConfig
	Environment string
	Version     string
	// Driver is the storage backend, sqlite or postgres
	Driver string
}

// FromConfig reads Settings off the loaded server configuration
func FromConfig(cfg *config.Config, version string) Settings {
	return Settings{
		Telemetry:   cfg.Telemetry,
		Environment: cfg.Server.Environment,
		Version:     version,
		Driver:      cfg.Database.Driver,
	}
}

// Tracer owns the SDK provider. With tracing off it holds nothing and
// Shutdown is a no-op.
type Tracer struct {
	provider *sdktrace.TracerProvider
}

// Start sets the W3C propagators and, when tracing is on, exports spans over
// OTLP/gRPC. Spans started before Start go to the global no-op provider.
func Start(ctx context.Context, s Settings) (*Tracer, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !s.Telemetry.TracingEnabled {
		return &Tracer{}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(s.Telemetry.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(s.attributes()...))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(s.Telemetry.SampleRate))),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider}, nil
}

func (s Settings) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", s.Telemetry.ServiceName),
		attribute.String("service.version", s.Version),
		attribute.String("deployment.environment", s.Environment),
		attribute.String("adherence.storage.driver", s.Driver),
	}
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes buffered spans
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
