// Package llm implements the chat-completion client: blocking and
// tool-advertising calls against an OpenAI-compatible endpoint, streaming
// delta assembly, and input-token-budget pruning.
package llm

import (
	"context"

	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// ToolDefinition is how a Tool's schema is advertised to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// StopReason explains why askTool stopped producing content.
type StopReason string

const (
	StopReasonToolCalls StopReason = "tool_calls"
	StopReasonStop      StopReason = "stop"
	StopReasonLength    StopReason = "length"
)

// AskToolResult is what askTool returns.
type AskToolResult struct {
	AssistantText string
	ToolCalls     []protocol.ToolCall
	StopReason    StopReason
}

// Provider is the LLMClient contract from the component design: translate a
// memory snapshot and tool schema set into a chat-completion call.
type Provider interface {
	// Ask issues a blocking call with no tools advertised.
	Ask(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error)

	// AskTool issues a call advertising tools. When stream is true and
	// printer is non-nil, incremental deltas are emitted through printer
	// under messageType=tool_thought as they are assembled.
	AskTool(ctx context.Context, messages []protocol.Message, systemPrompts []string, tools []ToolDefinition, toolChoice string, temperature float64, stream bool, printer *sse.Printer, messageID string) (AskToolResult, error)

	// StructuredAsk issues a blocking call in JSON-object response mode,
	// used by the SummaryAgent to produce a deterministic {status, result}
	// envelope rather than free-form prose.
	StructuredAsk(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error)

	// TokenCount returns the tokenizer-backed or heuristic token count for text.
	TokenCount(text string) int

	// Model returns the configured model name, for logging/metrics.
	Model() string
}
