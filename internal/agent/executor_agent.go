package agent

import (
	"context"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/sse"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// ExecutorAgent is a ReActAgent configured with the full tool set and a
// system prompt oriented to a single stage instruction. It terminates when
// the LLM stops issuing tool calls or maxSteps is exceeded; RunLoop handles
// both via the shared stall/limit machinery.
type ExecutorAgent struct {
	react *ReActAgent
}

// NewExecutorAgent builds an ExecutorAgent sharing one run's Memory, LLM,
// tool set, and Printer. stream controls whether tool_thought deltas are
// forwarded live.
func NewExecutorAgent(name string, mem *memory.Memory, llmClient llm.Provider, tools *tool.Collection, printer *sse.Printer, stream bool) *ExecutorAgent {
	core := NewCore(name, "stage executor", DefaultExecutorSystemPrompt, mem, llmClient, tools, printer)
	core.NextStepPrompt = DefaultExecutorNextStepPrompt
	return &ExecutorAgent{react: NewReActAgent(core, stream)}
}

// Run executes the agent's run loop against instruction and returns its
// final answer text.
func (e *ExecutorAgent) Run(ctx context.Context, instruction string) (string, error) {
	return RunLoop(ctx, e.react.Core, e.react, instruction)
}

// Core exposes the underlying AgentCore, e.g. for callers that want to
// override MaxSteps from configuration before running.
func (e *ExecutorAgent) Core() *AgentCore { return e.react.Core }
