package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kestrel-ai/kestrel/internal/config"
	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/orchestrator"
)

// Server is the HTTP shell around the request handler: it owns the router,
// the listener lifecycle, and the process-wide resources released at
// shutdown.
type Server struct {
	httpServer *http.Server
	obsManager *observability.Manager
	mcpCloser  io.Closer
}

// New builds a Server from a loaded Config: it constructs the process-wide
// LLM provider and Orchestrator, discovers MCP tools once against every
// configured server (the MCP tool registry is read-mostly after startup),
// wires the chi router (health, metrics, agent run), and wraps every route
// with the observability middleware. ctx bounds only the one-time MCP
// discovery, not the server's subsequent lifetime.
func New(ctx context.Context, cfg *config.Config, obsManager *observability.Manager) *Server {
	llmClient := llm.NewOpenAIProvider(cfg.LLM.ToProviderConfig(), llm.WithMetrics(obsManager.Metrics()))
	orch := orchestrator.New(llmClient, obsManager.Metrics(),
		orchestrator.WithAgentLimits(cfg.Agent.MaxSteps, cfg.Agent.DuplicateThreshold),
		orchestrator.WithPrompts(orchestrator.PromptOverrides{
			PlanningSystem:   cfg.Prompts.PlanningSystem,
			PlanningNextStep: cfg.Prompts.PlanningNextStep,
			ReActSystem:      cfg.Prompts.ReActSystem,
			ExecutorSystem:   cfg.Prompts.ExecutorSystem,
			ExecutorNextStep: cfg.Prompts.ExecutorNextStep,
			SummarySystem:    cfg.Prompts.SummarySystem,
			OutputStyleMap:   cfg.Prompts.OutputStyleMap,
		}))

	mcpTools, mcpCloser := cfg.DiscoverMcpTools(ctx)
	handler := NewRequestHandler(cfg, llmClient, orch, obsManager.Metrics(), mcpTools)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(obsManager.Metrics()))

	r.Get("/health", HealthHandler)
	r.Post("/agent/run", handler.ServeHTTP)
	if m := obsManager.Metrics(); m != nil {
		r.Handle(obsManager.MetricsEndpoint(), m.Handler())
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		obsManager: obsManager,
		mcpCloser:  mcpCloser,
	}
}

// ListenAndServe blocks serving HTTP until the listener fails or Shutdown
// is called, in which case it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	slog.Info("server: listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, closes every MCP server
// connection opened at startup (releasing any stdio subprocess), and tears
// down observability.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := s.mcpCloser.Close(); err != nil {
		slog.Warn("server: closing mcp connections", "error", err)
	}
	return s.obsManager.Shutdown(ctx)
}
