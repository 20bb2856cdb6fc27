// Package server implements the HTTP ingress: POST /agent/run (streaming
// SSE) and GET /health, wired with chi routing and the observability
// middleware.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrel-ai/kestrel/internal/config"
	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/orchestrator"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// RequestHandler is the request entry point: it validates a decoded
// RunRequest, builds the per-request AgentContext, launches the
// Orchestrator on its own goroutine, and lets the Printer stream the SSE
// response on the caller's goroutine.
type RequestHandler struct {
	cfg      *config.Config
	llm      llm.Provider
	orch     *orchestrator.Orchestrator
	metrics  *observability.Metrics
	mcpTools []tool.Tool
}

// NewRequestHandler wires a RequestHandler from a loaded Config, the
// process-wide LLM provider and Orchestrator built from it, and the MCP
// tools discovered once at startup.
func NewRequestHandler(cfg *config.Config, llmClient llm.Provider, orch *orchestrator.Orchestrator, metrics *observability.Metrics, mcpTools []tool.Tool) *RequestHandler {
	return &RequestHandler{cfg: cfg, llm: llmClient, orch: orch, metrics: metrics, mcpTools: mcpTools}
}

// ServeHTTP implements POST /agent/run.
func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req protocol.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateRunRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deadline := time.Now().Add(h.cfg.Server.RequestTimeout)
	printer, err := sse.New(w, deadline,
		sse.WithHeartbeatInterval(h.cfg.SSE.HeartbeatInterval),
		sse.WithQueueSize(h.cfg.SSE.QueueSize),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithDeadline(r.Context(), deadline)
	defer cancel()

	collection := h.cfg.BuildCollection(h.mcpTools, req.RequestID, req.Stream, h.metrics)

	actx := orchestrator.NewAgentContext(req, printer, collection)
	actx.Deadline = deadline

	// The Printer's serializing worker runs on this goroutine so the
	// client's HTTP response stays open until it returns; the Orchestrator
	// runs on its own goroutine and talks to the Printer only through
	// Send/SendResult/Close, never touching w directly.
	go h.orch.Run(ctx, actx)
	printer.Run(ctx)
}

func validateRunRequest(req protocol.RunRequest) error {
	if req.RequestID == "" {
		return errMissingField("requestId")
	}
	if req.Query == "" {
		return errMissingField("query")
	}
	switch req.Mode {
	case protocol.ModePlan, protocol.ModeReact:
	default:
		return errInvalidMode(req.Mode)
	}
	return nil
}

func errMissingField(name string) error {
	return &validationError{msg: name + " is required"}
}

func errInvalidMode(m protocol.Mode) error {
	return &validationError{msg: "mode must be \"plan\" or \"react\", got " + string(m)}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

// HealthHandler implements GET /health.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		slog.Warn("server: health response write failed", "error", err)
	}
}
