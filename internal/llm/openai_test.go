package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

func TestAskReturnsAssistantText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"4"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{BaseURL: srv.URL, Model: "gpt-4o", MaxOutputTokens: 100})
	text, err := p.Ask(context.Background(), []protocol.Message{{Role: protocol.RoleUser, Content: "2+2"}}, nil, 0)
	require.NoError(t, err)
	require.Equal(t, "4", text)
}

func TestAskToolParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"1","type":"function","function":{"name":"code_interpreter","arguments":"{\"task\":\"sum\"}"}}]},"finish_reason":"tool_calls"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{BaseURL: srv.URL, Model: "gpt-4o"})
	result, err := p.AskTool(context.Background(), nil, nil, []ToolDefinition{{Name: "code_interpreter"}}, "", 0, false, nil, "")
	require.NoError(t, err)
	require.Equal(t, StopReasonToolCalls, result.StopReason)
	require.Len(t, result.ToolCalls, 1)
	require.Equal(t, "code_interpreter", result.ToolCalls[0].Name)
}

func TestToolCallAccumulatorMergesByIndex(t *testing.T) {
	acc := newToolCallAccumulator()
	acc.merge(0, "call_1", "deep_search", `{"query":`)
	acc.merge(0, "", "", `"go"}`)
	acc.merge(1, "call_2", "report", `{}`)

	calls := acc.result()
	require.Len(t, calls, 2)
	require.Equal(t, "call_1", calls[0].ID)
	require.Equal(t, `{"query":"go"}`, calls[0].Arguments)
	require.Equal(t, "call_2", calls[1].ID)
}
