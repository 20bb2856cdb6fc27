package observability

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager owns the process-wide Tracer and Metrics. Exactly one Manager is
// built at startup and shared read-only across every request.
type Manager struct {
	cfg     Config
	tracer  *Tracer
	metrics *Metrics
}

// NewManager builds a Manager from cfg, initializing tracing and metrics
// independently; either may be disabled without affecting the other.
func NewManager(cfg Config) (*Manager, error) {
	cfg.SetDefaults()

	tracer, err := NewTracer(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("observability: initializing tracer: %w", err)
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("observability: initializing metrics: %w", err)
	}

	if cfg.Tracing.Enabled {
		slog.Info("observability: tracing enabled", "service", cfg.Tracing.ServiceName, "sampling_rate", cfg.Tracing.SamplingRate)
	}
	if cfg.Metrics.Enabled {
		slog.Info("observability: metrics enabled", "endpoint", cfg.Metrics.Endpoint, "namespace", cfg.Metrics.Namespace)
	}

	return &Manager{cfg: cfg, tracer: tracer, metrics: metrics}, nil
}

// Metrics returns the process-wide Metrics registry, or nil when disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsEndpoint returns the configured path to mount Metrics.Handler at.
func (m *Manager) MetricsEndpoint() string {
	if m == nil {
		return "/metrics"
	}
	return m.cfg.Metrics.Endpoint
}

// Shutdown tears down the tracer's exporter, bounded by shutdownTimeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.tracer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return m.tracer.Shutdown(ctx)
}
