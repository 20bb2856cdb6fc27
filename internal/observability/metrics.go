package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide Prometheus registry: a counter+histogram
// pair per domain (LLM calls, tool calls, agent runs, HTTP requests).
type Metrics struct {
	registry *prometheus.Registry

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  prometheus.Counter
	llmTokensOutput prometheus.Counter

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec

	agentRuns        *prometheus.CounterVec
	agentRunDuration *prometheus.HistogramVec
	agentSteps       *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers the metric set. Returns nil, nil when
// metrics are disabled; every Observe* method is a nil-receiver no-op.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	ns := cfg.Namespace
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "llm", Name: "calls_total", Help: "LLM chat-completion calls by model and outcome.",
	}, []string{"model", "outcome"})
	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "llm", Name: "call_duration_seconds", Help: "LLM call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	m.llmTokensInput = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "llm", Name: "tokens_input_total", Help: "Input tokens sent to the LLM, after pruning.",
	})
	m.llmTokensOutput = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "llm", Name: "tokens_output_total", Help: "Output tokens received from the LLM.",
	})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "tool", Name: "calls_total", Help: "Tool executions by tool name and outcome.",
	}, []string{"tool", "outcome"})
	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "tool", Name: "call_duration_seconds", Help: "Tool execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	m.agentRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "agent", Name: "runs_total", Help: "Agent runs by kind and terminal state.",
	}, []string{"kind", "state"})
	m.agentRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "agent", Name: "run_duration_seconds", Help: "Agent run wall-clock duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	m.agentSteps = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "agent", Name: "steps", Help: "Steps taken by a terminated agent run.",
		Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
	}, []string{"kind"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "http", Name: "requests_total", Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "http", Name: "request_duration_seconds", Help: "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	reg.MustRegister(
		m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput,
		m.toolCalls, m.toolCallDuration,
		m.agentRuns, m.agentRunDuration, m.agentSteps,
		m.httpRequests, m.httpDuration,
	)
	return m, nil
}

// Handler returns the HTTP handler the server mounts at cfg.Endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLLMCall records one chat-completion call's outcome and latency.
func (m *Metrics) ObserveLLMCall(model, outcome string, d time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model, outcome).Inc()
	m.llmCallDuration.WithLabelValues(model).Observe(d.Seconds())
	m.llmTokensInput.Add(float64(inputTokens))
	m.llmTokensOutput.Add(float64(outputTokens))
}

// ObserveToolCall records one tool execution's outcome and latency.
func (m *Metrics) ObserveToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveAgentRun records one terminated agent run's state, duration, and step count.
func (m *Metrics) ObserveAgentRun(kind, state string, d time.Duration, steps int) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(kind, state).Inc()
	m.agentRunDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.agentSteps.WithLabelValues(kind).Observe(float64(steps))
}

// ObserveHTTPRequest records one HTTP request's route, status, and latency.
func (m *Metrics) ObserveHTTPRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
