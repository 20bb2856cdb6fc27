package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kestrel-ai/kestrel/internal/httpclient"
	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// McpServerConfig describes one configured MCP server. Either BaseURL (the
// service's own /v1/tool/list + /v1/tool/call REST contract) or Command (a
// stdio MCP server, spoken over the real MCP protocol via mcp-go) is set.
type McpServerConfig struct {
	Name    string
	BaseURL string
	Command string
	Args    []string
	Env     map[string]string
	Filter  []string
	Timeout time.Duration
}

// McpTool is a thin proxy calling a remote MCP endpoint for exactly one
// discovered remote tool name.
type McpTool struct {
	name        string
	description string
	schema      map[string]any
	call        func(ctx context.Context, argumentsJSON string) protocol.ToolResult
}

func (t *McpTool) Info() Info {
	return Info{Name: t.name, Description: t.description, Parameters: t.schema}
}

func (t *McpTool) Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult {
	return t.call(ctx, argumentsJSON)
}

// noopCloser is the closer handed back for a transport with no persistent
// connection to release (HTTP: every call opens and closes its own request).
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// DiscoverMcpTools lists each configured MCP server's tools and materializes
// one McpTool per remote entry, applying cfg.Filter if set. This is meant to
// run once, at process startup: the returned tools are held as read-mostly
// process state and merged into every request's Collection. The returned
// io.Closer releases the server's underlying connection — a stdio server's
// subprocess, or a no-op for HTTP — and must be closed once, at process
// shutdown.
func DiscoverMcpTools(ctx context.Context, cfg McpServerConfig) ([]*McpTool, io.Closer, error) {
	if cfg.Command != "" {
		return discoverStdio(ctx, cfg)
	}
	tools, err := discoverHTTP(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return tools, noopCloser{}, nil
}

// callTimeout bounds one MCP exchange by the server's configured timeout;
// an unset timeout leaves the caller's ctx untouched.
func callTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func allowed(filter []string, name string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}

// --- HTTP transport: the /v1/tool/list + /v1/tool/call REST contract ---

type listToolsResponse struct {
	Tools []struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"tools"`
}

type callToolRequest struct {
	ToolName  string          `json:"toolName"`
	Arguments json.RawMessage `json:"arguments"`
}

func discoverHTTP(ctx context.Context, cfg McpServerConfig) ([]*McpTool, error) {
	httpClient := httpclient.New()

	ctx, cancel := callTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/v1/tool/list", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: listing tools: %w", cfg.Name, err)
	}
	defer resp.Body.Close()

	var decoded listToolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("mcp %s: decoding tool list: %w", cfg.Name, err)
	}

	var tools []*McpTool
	for _, entry := range decoded.Tools {
		if !allowed(cfg.Filter, entry.Name) {
			continue
		}
		entry := entry
		tools = append(tools, &McpTool{
			name:        entry.Name,
			description: entry.Description,
			schema:      entry.Parameters,
			call: func(ctx context.Context, argumentsJSON string) protocol.ToolResult {
				return callHTTP(ctx, httpClient, cfg, entry.Name, argumentsJSON)
			},
		})
	}
	return tools, nil
}

func callHTTP(ctx context.Context, httpClient *httpclient.Client, cfg McpServerConfig, toolName, argumentsJSON string) protocol.ToolResult {
	ctx, cancel := callTimeout(ctx, cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(callToolRequest{ToolName: toolName, Arguments: json.RawMessage(argumentsJSON)})
	if err != nil {
		return errorResult("mcp %s: encoding call: %v", cfg.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/v1/tool/call", bytes.NewReader(body))
	if err != nil {
		return errorResult("mcp %s: %v", cfg.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return errorResult("mcp %s: call failed: %v", cfg.Name, err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return errorResult("mcp %s: decoding call response: %v", cfg.Name, err)
	}
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: string(raw)}
}

// --- stdio transport: real MCP protocol over a subprocess, via mcp-go ---

func discoverStdio(ctx context.Context, cfg McpServerConfig) ([]*McpTool, io.Closer, error) {
	envPairs := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		envPairs = append(envPairs, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, envPairs, cfg.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("mcp %s: creating stdio client: %w", cfg.Name, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("mcp %s: starting subprocess: %w", cfg.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "kestrel", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("mcp %s: initializing: %w", cfg.Name, err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, nil, fmt.Errorf("mcp %s: listing tools: %w", cfg.Name, err)
	}

	var tools []*McpTool
	for _, remote := range listResp.Tools {
		if !allowed(cfg.Filter, remote.Name) {
			continue
		}
		remote := remote
		tools = append(tools, &McpTool{
			name:        remote.Name,
			description: remote.Description,
			schema:      schemaFromMcp(remote.InputSchema),
			call: func(ctx context.Context, argumentsJSON string) protocol.ToolResult {
				ctx, cancel := callTimeout(ctx, cfg.Timeout)
				defer cancel()
				return callStdio(ctx, mcpClient, remote.Name, argumentsJSON)
			},
		})
	}
	// The subprocess stays alive for the life of the process: every McpTool's
	// call closure above holds mcpClient, so it must outlive this function.
	// The caller is responsible for closing it once, at shutdown.
	return tools, mcpClient, nil
}

func callStdio(ctx context.Context, mcpClient *client.Client, toolName, argumentsJSON string) protocol.ToolResult {
	var args map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return errorResult("mcp: invalid arguments: %v", err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return errorResult("mcp: call failed: %v", err)
	}

	var text string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	if result.IsError {
		return protocol.ToolResult{Status: protocol.ToolStatusError, Content: text}
	}
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: text}
}

func schemaFromMcp(schema mcp.ToolInputSchema) map[string]any {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
