package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// errFakeTransport stands in for a transport-level LLM client failure.
var errFakeTransport = errors.New("fake transport failure")

// scriptedProvider is the same fixed-sequence fake llm.Provider used in
// internal/agent's test suite, duplicated here since it is unexported
// there. AskTool blocks on ctx when told to, modeling an LLM call that
// would otherwise hang until the caller's deadline fires.
type scriptedProvider struct {
	askToolCalls int
	askTool      []llm.AskToolResult
	askToolErr   []error
	blockOnCtx   bool

	structured  []string
	structuredN int

	// seenSystemPrompts records the system prompts of each AskTool call so
	// tests can assert what prompt text actually reached the model.
	seenSystemPrompts [][]string
}

func (s *scriptedProvider) Ask(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error) {
	result, err := s.AskTool(ctx, messages, systemPrompts, nil, "", temperature, false, nil, "")
	return result.AssistantText, err
}

func (s *scriptedProvider) AskTool(ctx context.Context, messages []protocol.Message, systemPrompts []string, tools []llm.ToolDefinition, toolChoice string, temperature float64, stream bool, printer *sse.Printer, messageID string) (llm.AskToolResult, error) {
	s.seenSystemPrompts = append(s.seenSystemPrompts, systemPrompts)
	if s.blockOnCtx {
		<-ctx.Done()
		return llm.AskToolResult{}, protocol.ErrCancelled
	}
	if s.askToolCalls >= len(s.askTool) {
		panic(fmt.Sprintf("scriptedProvider: AskTool called %d times, only %d scripted", s.askToolCalls+1, len(s.askTool)))
	}
	i := s.askToolCalls
	s.askToolCalls++
	var err error
	if i < len(s.askToolErr) {
		err = s.askToolErr[i]
	}
	return s.askTool[i], err
}

func (s *scriptedProvider) StructuredAsk(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error) {
	if s.structuredN >= len(s.structured) {
		panic(fmt.Sprintf("scriptedProvider: StructuredAsk called %d times, only %d scripted", s.structuredN+1, len(s.structured)))
	}
	i := s.structuredN
	s.structuredN++
	return s.structured[i], nil
}

func (s *scriptedProvider) TokenCount(text string) int { return len(text) / 4 }

func (s *scriptedProvider) Model() string { return "fake-model" }
