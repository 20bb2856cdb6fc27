package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

func TestReActAgentNoToolsNeeded(t *testing.T) {
	provider := &scriptedProvider{
		askTool: []llm.AskToolResult{
			{AssistantText: "the answer is 4", StopReason: llm.StopReasonStop},
		},
	}

	core := NewCore("react", "test", "", memory.New(), provider, tool.NewCollection(), nil)
	react := NewReActAgent(core, false)

	out, err := RunLoop(t.Context(), core, react, "what is 2+2?")
	require.NoError(t, err)
	require.Equal(t, "the answer is 4", out)
	require.Equal(t, protocol.StateFinished, core.State)
}

func TestReActAgentOneToolCallThenAnswer(t *testing.T) {
	provider := &scriptedProvider{
		askTool: []llm.AskToolResult{
			{
				AssistantText: "",
				ToolCalls:     []protocol.ToolCall{{ID: "1", Name: "echo", Arguments: `{}`}},
				StopReason:    llm.StopReasonToolCalls,
			},
			{AssistantText: "done", StopReason: llm.StopReasonStop},
		},
	}

	tools := tool.NewCollection()
	tools.Register(echoTool{name: "echo", result: protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "echoed"}})

	core := NewCore("react", "test", "", memory.New(), provider, tools, nil)
	react := NewReActAgent(core, false)

	out, err := RunLoop(t.Context(), core, react, "run the echo tool")
	require.NoError(t, err)
	require.Equal(t, "done", out)

	snap := core.Memory.Snapshot()
	var sawToolReply bool
	for _, m := range snap {
		if m.Role == protocol.RoleTool && m.Content == "echoed" && m.ToolCallID == "1" {
			sawToolReply = true
		}
	}
	require.True(t, sawToolReply, "expected a tool-role message echoing the tool result")
}

func TestReActAgentParallelToolCallsPreserveOrder(t *testing.T) {
	var calls []string
	provider := &scriptedProvider{
		askTool: []llm.AskToolResult{
			{
				ToolCalls: []protocol.ToolCall{
					{ID: "1", Name: "A"},
					{ID: "2", Name: "B"},
					{ID: "3", Name: "C"},
				},
				StopReason: llm.StopReasonToolCalls,
			},
			{AssistantText: "all done", StopReason: llm.StopReasonStop},
		},
	}

	tools := tool.NewCollection()
	tools.Register(echoTool{name: "A", result: protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "A-result"}, calls: &calls})
	tools.Register(echoTool{name: "B", result: protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "B-result"}, calls: &calls})
	tools.Register(echoTool{name: "C", result: protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "C-result"}, calls: &calls})

	core := NewCore("react", "test", "", memory.New(), provider, tools, nil)
	react := NewReActAgent(core, false)

	_, err := RunLoop(t.Context(), core, react, "run A, B, and C")
	require.NoError(t, err)

	var toolMessages []protocol.Message
	for _, m := range core.Memory.Snapshot() {
		if m.Role == protocol.RoleTool {
			toolMessages = append(toolMessages, m)
		}
	}
	require.Len(t, toolMessages, 3)
	require.Equal(t, "1", toolMessages[0].ToolCallID)
	require.Equal(t, "2", toolMessages[1].ToolCallID)
	require.Equal(t, "3", toolMessages[2].ToolCallID)
	require.Equal(t, "A-result", toolMessages[0].Content)
	require.Equal(t, "B-result", toolMessages[1].Content)
	require.Equal(t, "C-result", toolMessages[2].Content)
}

func TestReActAgentStepCapStall(t *testing.T) {
	// The model keeps calling the same tool forever; RunLoop must stop at
	// MaxSteps rather than looping indefinitely.
	toolCall := protocol.ToolCall{ID: "1", Name: "echo"}
	var scripted []llm.AskToolResult
	for i := 0; i < DefaultMaxSteps; i++ {
		scripted = append(scripted, llm.AskToolResult{
			ToolCalls:  []protocol.ToolCall{toolCall},
			StopReason: llm.StopReasonToolCalls,
		})
	}
	provider := &scriptedProvider{askTool: scripted}

	tools := tool.NewCollection()
	tools.Register(&countingTool{name: "echo"})

	core := NewCore("react", "test", "", memory.New(), provider, tools, nil)
	react := NewReActAgent(core, false)

	_, err := RunLoop(t.Context(), core, react, "loop forever")
	require.NoError(t, err)
	require.Equal(t, DefaultMaxSteps, core.CurrentStep)
	require.Equal(t, protocol.StateFinished, core.State)
}

func TestReActAgentRespectsCancelledContext(t *testing.T) {
	// The think step must observe ctx rather than always using a fresh
	// background context, so a request deadline actually stops an
	// in-flight agent rather than running the LLM call to completion.
	provider := &scriptedProvider{askTool: []llm.AskToolResult{{AssistantText: "should never run"}}}

	core := NewCore("react", "test", "", memory.New(), provider, tool.NewCollection(), nil)
	react := NewReActAgent(core, false)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := RunLoop(ctx, core, react, "will be cancelled")
	require.ErrorIs(t, err, protocol.ErrCancelled)
	require.Equal(t, protocol.StateError, core.State)
}

func TestReActAgentErrorThresholdStopsRun(t *testing.T) {
	provider := &scriptedProvider{
		askTool:    []llm.AskToolResult{{}, {}},
		askToolErr: []error{errFakeTransport, errFakeTransport},
	}

	core := NewCore("react", "test", "", memory.New(), provider, tool.NewCollection(), nil)
	core.DuplicateThreshold = 2
	react := NewReActAgent(core, false)

	_, err := RunLoop(t.Context(), core, react, "this will fail")
	require.ErrorIs(t, err, errFakeTransport)
	require.Equal(t, protocol.StateError, core.State)
}
