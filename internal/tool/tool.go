// Package tool implements the tool subsystem: the Tool contract, the
// ToolCollection registry with its parallel-execution barrier, and the
// built-in tools (code interpreter, deep search, file, report, planning,
// MCP proxy).
package tool

import (
	"context"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// Info describes a tool for advertisement to the LLM.
type Info struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema; built-ins generate it via invopop/jsonschema, MCP tools take the server's
}

// Tool is a named capability with a JSON-Schema-described parameter set.
// Execute may emit intermediate SSE events through the Invocation's Printer
// before returning its consolidated ToolResult.
type Tool interface {
	Info() Info
	Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult
}

// Invocation carries what a Tool needs at call time without giving it a
// back-pointer to the whole request context: a Printer to stream through
// and the ToolCall it is satisfying.
type Invocation struct {
	Printer  EventSink
	ToolCall protocol.ToolCall
}

// EventSink is the subset of *sse.Printer a Tool needs. Kept as an
// interface here (rather than importing internal/sse directly) so tools
// never acquire any capability beyond "emit an event" — and so this
// package and internal/sse never import each other.
type EventSink interface {
	Send(protocol.SSEEvent)
}
