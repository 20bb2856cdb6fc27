package memory

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// TokenCounter counts tokens the way the configured model's tokenizer would,
// falling back to a calibrated 4-chars-per-token estimate for model names
// tiktoken has no encoding for.
type TokenCounter struct {
	model    string
	encoding *tiktoken.Tiktoken // nil means "use the heuristic"
}

var (
	encodingCacheMu sync.RWMutex
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
)

// NewTokenCounter builds a counter for model, reusing a cached encoding
// across counters for the same model.
func NewTokenCounter(model string) *TokenCounter {
	encName := encodingNameForModel(model)

	encodingCacheMu.RLock()
	enc, ok := encodingCache[encName]
	encodingCacheMu.RUnlock()
	if ok {
		return &TokenCounter{model: model, encoding: enc}
	}

	enc, err := tiktoken.GetEncoding(encName)
	if err != nil {
		// No usable encoding for this model name; the heuristic carries it.
		return &TokenCounter{model: model}
	}

	encodingCacheMu.Lock()
	encodingCache[encName] = enc
	encodingCacheMu.Unlock()

	return &TokenCounter{model: model, encoding: enc}
}

// Count returns the token count of a single string.
func (tc *TokenCounter) Count(text string) int {
	if tc.encoding == nil {
		return estimateByLength(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages counts tokens across a message list including OpenAI's
// per-message role/boundary overhead.
func (tc *TokenCounter) CountMessages(messages []protocol.Message) int {
	const tokensPerMessage = 3
	total := 0
	for _, m := range messages {
		total += tokensPerMessage
		total += tc.Count(string(m.Role))
		total += tc.Count(m.Content)
		for _, tcall := range m.ToolCalls {
			total += tc.Count(tcall.Name) + tc.Count(tcall.Arguments)
		}
	}
	total += 3 // reply is primed with <|start|>assistant<|message|>
	return total
}

func estimateByLength(text string) int {
	if len(text) == 0 {
		return 0
	}
	const charsPerToken = 4
	n := len(text) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// encodingNameForModel maps a model name (possibly a prefix, e.g.
// "gpt-4o-2024-08-06") to a tiktoken encoding name, or "" when no known
// prefix matches.
func encodingNameForModel(model string) string {
	prefixes := []struct {
		prefix, encoding string
	}{
		{"gpt-4o", "o200k_base"},
		{"gpt-4", "cl100k_base"},
		{"gpt-3.5", "cl100k_base"},
		{"text-embedding", "cl100k_base"},
	}
	for _, p := range prefixes {
		if len(model) >= len(p.prefix) && model[:len(p.prefix)] == p.prefix {
			return p.encoding
		}
	}
	return ""
}
