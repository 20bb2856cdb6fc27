package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps the otel TracerProvider registered globally, exporting
// spans to stdout.
type Tracer struct {
	provider *sdktrace.TracerProvider
}

// NewTracer builds and globally registers a TracerProvider from cfg. When
// cfg.Enabled is false it installs a no-op provider so every call site can
// unconditionally call otel.Tracer(...) without a nil check.
func NewTracer(cfg TracingConfig) (*Tracer, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Tracer{}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("observability: building stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	return &Tracer{provider: tp}, nil
}

// Shutdown flushes and stops the tracer's batch span processor. A no-op
// Tracer (tracing disabled) returns nil immediately.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Start is a thin convenience wrapper over otel.Tracer(name).Start, used by
// internal/agent and internal/tool to bracket a step or tool call in a span
// without importing otel directly.
func Start(ctx context.Context, name, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(name).Start(ctx, spanName)
}
