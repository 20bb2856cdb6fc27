package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-ai/kestrel/internal/httpclient"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// Config is the per-profile LLM configuration the orchestrator wires a
// Provider from.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxInputTokens  int
	MaxOutputTokens int
	Temperature     float64
	// RequestTimeout caps one whole chat-completion exchange, including
	// reading a streamed response to its end. Zero keeps the transport's
	// default.
	RequestTimeout time.Duration
}

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIProvider struct {
	cfg     Config
	client  *httpclient.Client
	counter *memory.TokenCounter
	metrics *observability.Metrics
}

// ProviderOption configures an OpenAIProvider beyond its Config.
type ProviderOption func(*OpenAIProvider)

// WithMetrics attaches a process-wide Metrics registry every chat-completion
// call reports its outcome, latency, and token counts through. Omitting it
// leaves the provider silent (Metrics is nil-safe on every Observe* call).
func WithMetrics(m *observability.Metrics) ProviderOption {
	return func(p *OpenAIProvider) { p.metrics = m }
}

// NewOpenAIProvider builds a Provider around cfg, with retry defaults
// matching the transport-failure policy (base 500ms, cap 8s).
func NewOpenAIProvider(cfg Config, opts ...ProviderOption) *OpenAIProvider {
	clientOpts := []httpclient.Option{
		httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
	}
	if cfg.RequestTimeout > 0 {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}
	p := &OpenAIProvider{
		cfg:     cfg,
		client:  httpclient.New(clientOpts...),
		counter: memory.NewTokenCounter(cfg.Model),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenAIProvider) Model() string { return p.cfg.Model }

func (p *OpenAIProvider) TokenCount(text string) int { return p.counter.Count(text) }

// Ask issues a blocking call with no tools advertised.
func (p *OpenAIProvider) Ask(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error) {
	result, err := p.AskTool(ctx, messages, systemPrompts, nil, "", temperature, false, nil, "")
	if err != nil {
		return "", err
	}
	return result.AssistantText, nil
}

// StructuredAsk issues a blocking call with response_format=json_object, for
// callers (the SummaryAgent) that need a parseable structured envelope
// rather than free-form text.
func (p *OpenAIProvider) StructuredAsk(ctx context.Context, messages []protocol.Message, systemPrompts []string, temperature float64) (string, error) {
	pruned := p.pruneForBudget(messages)
	req := p.buildRequest(pruned, systemPrompts, nil, "", temperature, false)
	req.ResponseFormat = &wireRespFormat{Type: "json_object"}

	result, err := p.doChatRequest(ctx, req, false, nil, "")
	if err != nil {
		return "", err
	}
	return result.AssistantText, nil
}

// AskTool implements Provider.AskTool.
func (p *OpenAIProvider) AskTool(ctx context.Context, messages []protocol.Message, systemPrompts []string, tools []ToolDefinition, toolChoice string, temperature float64, stream bool, printer *sse.Printer, messageID string) (AskToolResult, error) {
	pruned := p.pruneForBudget(messages)
	req := p.buildRequest(pruned, systemPrompts, tools, toolChoice, temperature, stream)
	return p.doChatRequest(ctx, req, stream, printer, messageID)
}

// doChatRequest wraps chatRequestOnce with metrics: outcome (ok/error),
// latency, and input/output token counts are reported through p.metrics
// regardless of which of Ask/AskTool/StructuredAsk initiated the call.
func (p *OpenAIProvider) doChatRequest(ctx context.Context, req chatRequest, stream bool, printer *sse.Printer, messageID string) (AskToolResult, error) {
	start := time.Now()
	result, err := p.chatRequestOnce(ctx, req, stream, printer, messageID)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	outputTokens := 0
	if err == nil {
		outputTokens = p.TokenCount(result.AssistantText)
	}
	inputTokens := 0
	for _, m := range req.Messages {
		inputTokens += p.TokenCount(m.Content)
	}
	p.metrics.ObserveLLMCall(p.cfg.Model, outcome, time.Since(start), inputTokens, outputTokens)

	return result, err
}

func (p *OpenAIProvider) chatRequestOnce(ctx context.Context, req chatRequest, stream bool, printer *sse.Printer, messageID string) (AskToolResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return AskToolResult{}, newParseError("encoding chat request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return AskToolResult{}, newTransportError("building request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return AskToolResult{}, newTransportError("calling LLM endpoint", err)
	}
	defer resp.Body.Close()

	if stream {
		return p.consumeStream(ctx, resp.Body, printer, messageID)
	}
	return p.consumeBlocking(resp.Body)
}

func (p *OpenAIProvider) buildRequest(messages []protocol.Message, systemPrompts []string, tools []ToolDefinition, toolChoice string, temperature float64, stream bool) chatRequest {
	wireMessages := make([]wireMessage, 0, len(systemPrompts)+len(messages))
	for _, s := range systemPrompts {
		wireMessages = append(wireMessages, wireMessage{Role: "system", Content: s})
	}
	for _, m := range messages {
		wm := wireMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireToolCallFunc{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		wireMessages = append(wireMessages, wm)
	}

	var wireTools []wireTool
	for _, t := range tools {
		wireTools = append(wireTools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return chatRequest{
		Model:       p.cfg.Model,
		Messages:    wireMessages,
		Tools:       wireTools,
		ToolChoice:  toolChoice,
		Temperature: temperature,
		Stream:      stream,
	}
}

// pruneForBudget drops the oldest non-system messages until the serialized
// size fits maxInputTokens minus the space reserved for the model's reply.
func (p *OpenAIProvider) pruneForBudget(messages []protocol.Message) []protocol.Message {
	if p.cfg.MaxInputTokens <= 0 {
		return messages
	}
	reserved := p.cfg.MaxOutputTokens
	budget := p.cfg.MaxInputTokens - reserved
	if budget <= 0 {
		return messages
	}

	m := memory.New()
	for _, msg := range messages {
		m.Append(msg)
	}
	m.PruneToFit(p.counter, budget)
	return m.Snapshot()
}

func (p *OpenAIProvider) consumeBlocking(body io.Reader) (AskToolResult, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return AskToolResult{}, newTransportError("reading response body", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return AskToolResult{}, newParseError("decoding chat response", err)
	}
	if resp.Error != nil {
		return AskToolResult{}, newTransportError(resp.Error.Message, nil)
	}
	if len(resp.Choices) == 0 {
		return AskToolResult{}, newParseError("chat response had no choices", nil)
	}

	choice := resp.Choices[0]
	result := AskToolResult{
		AssistantText: choice.Message.Content,
		StopReason:    StopReasonStop,
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, protocol.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if len(result.ToolCalls) > 0 {
		result.StopReason = StopReasonToolCalls
	} else if choice.FinishReason == "length" {
		result.StopReason = StopReasonLength
	}
	return result, nil
}

// toolCallAccumulator merges streamed tool-call deltas by index into a
// stable {id, name, arguments} entry.
type toolCallAccumulator struct {
	order []int
	byIdx map[int]*protocol.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIdx: make(map[int]*protocol.ToolCall)}
}

func (a *toolCallAccumulator) merge(index int, id, name, argsDelta string) {
	entry, ok := a.byIdx[index]
	if !ok {
		entry = &protocol.ToolCall{}
		a.byIdx[index] = entry
		a.order = append(a.order, index)
	}
	if id != "" {
		entry.ID = id
	}
	if name != "" {
		entry.Name = name
	}
	entry.Arguments += argsDelta
}

func (a *toolCallAccumulator) result() []protocol.ToolCall {
	out := make([]protocol.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.byIdx[idx])
	}
	return out
}

func (p *OpenAIProvider) consumeStream(ctx context.Context, body io.Reader, printer *sse.Printer, messageID string) (AskToolResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var textBuilder strings.Builder
	toolCalls := newToolCallAccumulator()
	stopReason := StopReasonStop

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return AskToolResult{}, protocol.ErrCancelled
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("llm: skipping malformed stream chunk", "error", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			textBuilder.WriteString(choice.Delta.Content)
			if printer != nil {
				emitThought(printer, messageID, choice.Delta.Content, false)
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			toolCalls.merge(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
		if choice.FinishReason != nil {
			switch *choice.FinishReason {
			case "tool_calls":
				stopReason = StopReasonToolCalls
			case "length":
				stopReason = StopReasonLength
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return AskToolResult{}, newTransportError("reading stream", err)
	}

	if printer != nil {
		emitThought(printer, messageID, "", true)
	}

	calls := toolCalls.result()
	if len(calls) > 0 {
		stopReason = StopReasonToolCalls
	}

	return AskToolResult{
		AssistantText: textBuilder.String(),
		ToolCalls:     calls,
		StopReason:    stopReason,
	}, nil
}

func emitThought(printer *sse.Printer, messageID, delta string, isFinal bool) {
	payload, _ := json.Marshal(map[string]string{"toolThought": delta})
	id := messageID
	if id == "" {
		id = uuid.NewString()
	}
	printer.Send(protocol.SSEEvent{
		MessageID:   id,
		MessageType: protocol.MessageTypeToolThought,
		ResultMap:   payload,
		IsFinal:     isFinal,
	})
}
