package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// summaryEnvelope is the structured shape requested from StructuredAsk.
type summaryEnvelope struct {
	Status string `json:"status"`
	Result string `json:"result"`
}

// SummaryAgent is a single-shot agent: one blocking LLM
// call over the accumulated taskSummary, producing the final user-facing
// text. It has no tools and no run loop of its own beyond the single call.
type SummaryAgent struct {
	llmClient llm.Provider
	printer   *sse.Printer

	// SystemPrompt defaults to DefaultSummarySystemPrompt; config.PromptsConfig
	// overrides it after construction when set.
	SystemPrompt string
}

// NewSummaryAgent builds a SummaryAgent against the given LLM provider.
func NewSummaryAgent(llmClient llm.Provider, printer *sse.Printer) *SummaryAgent {
	return &SummaryAgent{llmClient: llmClient, printer: printer, SystemPrompt: DefaultSummarySystemPrompt}
}

// Summarize produces the final answer for query given the joined text of
// every completed stage, emitting it as a
// task_summary event before returning.
func (s *SummaryAgent) Summarize(ctx context.Context, query, taskSummary string) (string, error) {
	prompt := fmt.Sprintf("Original request:\n%s\n\nWork completed:\n%s\n\nRespond with a JSON object {\"status\":\"success\",\"result\":\"<final answer text>\"}.", query, taskSummary)
	raw, err := s.llmClient.StructuredAsk(ctx, []protocol.Message{{Role: protocol.RoleUser, Content: prompt}}, []string{s.SystemPrompt}, 0)
	if err != nil {
		return "", err
	}

	text := raw
	var env summaryEnvelope
	if jerr := json.Unmarshal([]byte(raw), &env); jerr == nil && env.Result != "" {
		text = env.Result
	}

	sendTaskSummaryEvent(s.printer, text, nil)
	return text, nil
}
