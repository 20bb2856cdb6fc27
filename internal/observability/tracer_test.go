package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracerDisabledInstallsNoopProvider(t *testing.T) {
	tr, err := NewTracer(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tr)
	require.NoError(t, tr.Shutdown(context.Background()))

	_, span := Start(context.Background(), "kestrel/test", "noop-span")
	defer span.End()
	require.False(t, span.SpanContext().IsValid())
}

func TestNewTracerEnabledBuildsProvider(t *testing.T) {
	cfg := TracingConfig{Enabled: true, SamplingRate: 1.0}
	tr, err := NewTracer(cfg)
	require.NoError(t, err)
	require.NotNil(t, tr)
	defer tr.Shutdown(context.Background())

	ctx, span := Start(context.Background(), "kestrel/test", "enabled-span")
	require.NotNil(t, ctx)
	span.End()
}
