// Command kestrel runs the multi-agent orchestration service: it loads a
// YAML config, wires the LLM provider, tool collection, and observability
// manager from it, and serves POST /agent/run and GET /health until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrel-ai/kestrel/internal/config"
	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("kestrel: fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	obsManager, err := observability.NewManager(cfg.Observability)
	if err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx, cfg, obsManager)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("kestrel: shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
