package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// scriptedProvider is a fake llm.Provider driven by a fixed sequence of
// AskTool responses, one per call; StructuredAsk and Ask draw from their own
// sequences. Exhausting a sequence is a test bug, not a runtime condition, so
// it panics rather than returning a zero value that would mask the mistake.
type scriptedProvider struct {
	askToolCalls int
	askTool      []llm.AskToolResult
	askToolErr   []error

	structured    []string
	structuredErr []error
	structuredN   int

	model string
}

func (s *scriptedProvider) Ask(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error) {
	result, err := s.AskTool(ctx, messages, systemPrompts, nil, "", temperature, false, nil, "")
	return result.AssistantText, err
}

func (s *scriptedProvider) AskTool(ctx context.Context, messages []protocol.Message, systemPrompts []string, tools []llm.ToolDefinition, toolChoice string, temperature float64, stream bool, printer *sse.Printer, messageID string) (llm.AskToolResult, error) {
	select {
	case <-ctx.Done():
		return llm.AskToolResult{}, protocol.ErrCancelled
	default:
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
	var err error
	if i < len(s.structuredErr) {
		err = s.structuredErr[i]
	}
	return s.structured[i], err
}

func (s *scriptedProvider) TokenCount(text string) int { return len(text) / 4 }

func (s *scriptedProvider) Model() string {
	if s.model == "" {
		return "fake-model"
	}
	return s.model
}

var errFakeTransport = errors.New("fake transport failure")
