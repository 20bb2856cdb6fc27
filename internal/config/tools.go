package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// ToolsConfig configures the built-in sub-service proxy tools (internal/tool's
// CodeInterpreterTool, DeepSearchTool, ReportTool, FileTool), each an
// HTTP(S) egress target outside this process.
type ToolsConfig struct {
	CodeInterpreter SubServiceConfig `yaml:"code_interpreter,omitempty"`
	DeepSearch      DeepSearchConfig `yaml:"deep_search,omitempty"`
	Report          SubServiceConfig `yaml:"report,omitempty"`
	File            SubServiceConfig `yaml:"file,omitempty"`
}

// SubServiceConfig is the shared shape for a proxied sub-service: where it
// lives and how long a call may take before the proxy gives up on it.
type SubServiceConfig struct {
	Enabled *bool         `yaml:"enabled,omitempty"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// DeepSearchConfig adds the research loop's iteration cap on top of
// SubServiceConfig.
type DeepSearchConfig struct {
	SubServiceConfig `yaml:",inline"`
	MaxLoop          int `yaml:"max_loop,omitempty"`
}

// IsEnabled treats an unset flag as enabled: sub-services are opted out,
// not in.
func (c SubServiceConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *ToolsConfig) SetDefaults() {
	c.CodeInterpreter.setDefaults(30 * time.Second)
	c.DeepSearch.SubServiceConfig.setDefaults(2 * time.Minute)
	if c.DeepSearch.MaxLoop == 0 {
		c.DeepSearch.MaxLoop = 5
	}
	c.Report.setDefaults(time.Minute)
	c.File.setDefaults(30 * time.Second)
}

func (c *SubServiceConfig) setDefaults(timeout time.Duration) {
	if c.Timeout == 0 {
		c.Timeout = timeout
	}
}

// MCPConfig decodes one configured MCP server block. Loosely-typed YAML
// under this key is decoded via mitchellh/mapstructure so env/stdio
// settings arrive as a typed tool.McpServerConfig rather than map[string]any.
type MCPConfig struct {
	Name    string            `yaml:"name"`
	BaseURL string            `yaml:"base_url,omitempty"`
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Filter  []string          `yaml:"filter,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
}

func (c *MCPConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

func (c *MCPConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("mcp: name is required")
	}
	if c.BaseURL == "" && c.Command == "" {
		return fmt.Errorf("mcp %q: base_url or command is required", c.Name)
	}
	return nil
}

func (c MCPConfig) toServerConfig() tool.McpServerConfig {
	return tool.McpServerConfig{
		Name:    c.Name,
		BaseURL: c.BaseURL,
		Command: c.Command,
		Args:    c.Args,
		Env:     c.Env,
		Filter:  c.Filter,
		Timeout: c.Timeout,
	}
}

// DiscoverMcpTools discovers every configured MCP server's tools once, at
// process startup: the MCP tool registry is built at startup and read-only
// afterwards, so discovery — and for stdio servers, the subprocess spawn it
// implies — must not repeat on every request. A server that fails to discover is logged and skipped
// rather than aborting startup for the others. The returned io.Closer
// aggregates every server's connection (a stdio server's subprocess; a
// no-op for HTTP) and must be closed once, when the process shuts down.
func (c Config) DiscoverMcpTools(ctx context.Context) ([]tool.Tool, io.Closer) {
	var tools []tool.Tool
	var closers multiCloser
	for _, m := range c.MCP {
		discovered, closer, err := tool.DiscoverMcpTools(ctx, m.toServerConfig())
		if err != nil {
			slog.Warn("config: mcp discovery failed, skipping server", "server", m.Name, "error", err)
			continue
		}
		for _, t := range discovered {
			tools = append(tools, t)
		}
		closers = append(closers, closer)
	}
	return tools, closers
}

// multiCloser closes every underlying closer, continuing past failures and
// returning the first error encountered.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var firstErr error
	for _, c := range m {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildCollection assembles one request's tool.Collection: the configured
// built-in proxies (skipping any disabled by SubServiceConfig), plus the
// process-wide mcpTools discovered once at startup by DiscoverMcpTools.
// requestID and stream thread through to the proxy tools that need
// per-request identity (CodeInterpreterTool, DeepSearchTool) — this is why
// the built-ins are still constructed per request even though MCP tools are
// not.
func (c Config) BuildCollection(mcpTools []tool.Tool, requestID string, stream bool, metrics *observability.Metrics) *tool.Collection {
	collection := tool.NewCollection().WithMetrics(metrics)

	if c.Tools.CodeInterpreter.IsEnabled() && c.Tools.CodeInterpreter.BaseURL != "" {
		collection.Register(tool.NewCodeInterpreterTool(c.Tools.CodeInterpreter.BaseURL, requestID, stream, c.Tools.CodeInterpreter.Timeout))
	}
	if c.Tools.DeepSearch.IsEnabled() && c.Tools.DeepSearch.BaseURL != "" {
		collection.Register(tool.NewDeepSearchTool(c.Tools.DeepSearch.BaseURL, requestID, c.Tools.DeepSearch.MaxLoop, c.Tools.DeepSearch.Timeout))
	}
	if c.Tools.Report.IsEnabled() && c.Tools.Report.BaseURL != "" {
		collection.Register(tool.NewReportTool(c.Tools.Report.BaseURL, c.Tools.Report.Timeout))
	}
	if c.Tools.File.IsEnabled() && c.Tools.File.BaseURL != "" {
		collection.Register(tool.NewFileTool(c.Tools.File.BaseURL, c.Tools.File.Timeout))
	}

	for _, t := range mcpTools {
		collection.Register(t)
	}

	return collection
}
