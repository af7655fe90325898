package billetera

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider builds an SDK tracer provider that batches spans to
// exporter and tags them with the service name and version. It is installed
// as the global provider, so every package tracing through otel.Tracer picks
// it up. Callers must Shutdown the provider to flush pending spans.
func NewTracerProvider(serviceName, version string, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp
}

// ShutdownFunc flushes and stops telemetry.
type ShutdownFunc func(ctx context.Context) error

// NoopShutdown is returned when tracing is disabled.
func NoopShutdown(context.Context) error { return nil }
