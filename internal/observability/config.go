// Package observability wires the service's metrics and tracing: a
// Prometheus registry counting LLM/tool/agent activity, and an
// OpenTelemetry tracer provider exporting to stdout (no collector
// endpoint is in scope).
package observability

import "time"

// Config configures the observability system.
type Config struct {
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures the stdout-exporting OpenTelemetry tracer.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	ServiceName  string  `yaml:"service_name,omitempty"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`
}

// MetricsConfig configures the Prometheus metrics registry.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

func (c *Config) SetDefaults() {
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()
}

func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "kestrel"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
}

func (c *MetricsConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "kestrel"
	}
}

// shutdownTimeout bounds how long Manager.Shutdown waits for the tracer's
// batch span processor to flush.
const shutdownTimeout = 5 * time.Second
