package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// ReActAgent implements the think-then-act template method:
// each Step call asks the LLM with tools advertised; a non-empty
// tool-call response is executed and folded back into memory, a
// tool-call-free response ends the run with that text as the answer.
type ReActAgent struct {
	Core *AgentCore

	// Stream controls whether AskTool emits incremental tool_thought deltas
	// through the agent's Printer while assembling the assistant turn.
	Stream bool
}

// NewReActAgent builds a ReActAgent sharing the given core's memory, LLM,
// tools, and printer.
func NewReActAgent(core *AgentCore, stream bool) *ReActAgent {
	return &ReActAgent{Core: core, Stream: stream}
}

// Step implements agent.Stepper: think, then act if thinking produced tool
// calls, otherwise the assistant's plain text is the step's (and likely the
// run's) final answer.
func (a *ReActAgent) Step(ctx context.Context, core *AgentCore) Outcome {
	toolCalls, text, err := a.think(ctx)
	if err != nil {
		return Failed(err)
	}
	if len(toolCalls) == 0 {
		// No further tool calls means the assistant's text is the final
		// answer: stop the loop now rather than asking the model again.
		// Reuses OutcomeLimit, the same "stop now, this is final" signal
		// PlanningAgent returns from its own Done() case.
		return Outcome{Kind: OutcomeLimit, Text: text}
	}
	return OK(a.act(ctx, toolCalls))
}

// think calls the LLM with the current memory and the full advertised tool
// set, appends the resulting assistant message, and reports whether it
// carried tool calls.
func (a *ReActAgent) think(ctx context.Context) (toolCalls []protocol.ToolCall, text string, err error) {
	defs := toolDefinitions(a.Core.Tools)
	messageID := a.Core.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	result, err := a.Core.LLM.AskTool(ctx, a.Core.Memory.Snapshot(), systemPrompts(a.Core), defs, "", 0, a.Stream, a.Core.Printer, messageID)
	if err != nil {
		return nil, "", err
	}

	a.Core.Memory.Append(protocol.Message{
		Role:      protocol.RoleAssistant,
		Content:   result.AssistantText,
		ToolCalls: result.ToolCalls,
	})

	return result.ToolCalls, result.AssistantText, nil
}

// act executes every tool call via the shared barrier, appends one tool
// Message per result (in the calls' original order, matching each
// toolCallId), and returns a human-readable concatenation for the run
// loop's accumulation.
func (a *ReActAgent) act(ctx context.Context, calls []protocol.ToolCall) string {
	var sink tool.EventSink
	if a.Core.Printer != nil {
		sink = a.Core.Printer
	}
	results := a.Core.Tools.ExecuteMany(ctx, sink, calls)

	var out strings.Builder
	for i, entry := range results.Ordered() {
		a.Core.Memory.Append(protocol.Message{
			Role:       protocol.RoleTool,
			Content:    entry.Result.Content,
			ToolCallID: entry.ID,
		})
		a.emitToolResult(calls, entry)
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(entry.Result.Content)
	}
	return out.String()
}

func (a *ReActAgent) emitToolResult(calls []protocol.ToolCall, entry struct {
	ID     string
	Result protocol.ToolResult
}) {
	if a.Core.Printer == nil {
		return
	}
	name := ""
	for _, c := range calls {
		if c.ID == entry.ID {
			name = c.Name
			break
		}
	}
	sendToolResultEvent(a.Core.Printer, a.Core.Tools.Employee(name), name, entry.Result.Content)
}

// toolDefinitions adapts a tool.Collection's advertised tools to the shape
// the LLM client needs.
func toolDefinitions(tools *tool.Collection) []llm.ToolDefinition {
	if tools == nil {
		return nil
	}
	infos := tools.Infos()
	defs := make([]llm.ToolDefinition, 0, len(infos))
	for _, info := range infos {
		defs = append(defs, llm.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.Parameters,
		})
	}
	return defs
}

func systemPrompts(core *AgentCore) []string {
	if core.SystemPrompt == "" {
		return nil
	}
	return []string{core.SystemPrompt}
}
