package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

func TestClearToolContextKeepsPlainMessages(t *testing.T) {
	m := New("sys")
	m.Append(protocol.Message{Role: protocol.RoleUser, Content: "hi"})
	m.Append(protocol.Message{
		Role:      protocol.RoleAssistant,
		ToolCalls: []protocol.ToolCall{{ID: "1", Name: "t"}},
	})
	m.Append(protocol.Message{Role: protocol.RoleTool, ToolCallID: "1", Content: "result"})
	m.Append(protocol.Message{Role: protocol.RoleAssistant, Content: "done"})

	m.ClearToolContext()

	snap := m.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, protocol.RoleSystem, snap[0].Role)
	require.Equal(t, protocol.RoleUser, snap[1].Role)
	require.Equal(t, protocol.RoleAssistant, snap[2].Role)
	require.Equal(t, "done", snap[2].Content)
}

func TestPruneToFitPreservesLeadingSystemMessage(t *testing.T) {
	m := New("system prompt")
	for i := 0; i < 50; i++ {
		m.Append(protocol.Message{Role: protocol.RoleUser, Content: strings.Repeat("word ", 50)})
	}

	counter := NewTokenCounter("gpt-4o")
	m.PruneToFit(counter, 200)

	snap := m.Snapshot()
	require.NotEmpty(t, snap)
	require.Equal(t, protocol.RoleSystem, snap[0].Role)
	require.LessOrEqual(t, counter.CountMessages(snap), 200+counter.CountMessages(snap[len(snap)-1:]))
}

func TestPruneToFitDropsOrphanedToolReplies(t *testing.T) {
	m := New("sys")
	m.Append(protocol.Message{
		Role:      protocol.RoleAssistant,
		ToolCalls: []protocol.ToolCall{{ID: "a", Name: "t"}},
	})
	m.Append(protocol.Message{Role: protocol.RoleTool, ToolCallID: "a", Content: strings.Repeat("x", 4000)})
	m.Append(protocol.Message{Role: protocol.RoleUser, Content: "recent"})

	counter := NewTokenCounter("gpt-4o")
	m.PruneToFit(counter, 50)

	for _, msg := range m.Snapshot() {
		if msg.Role == protocol.RoleTool {
			t.Fatalf("expected orphaned tool message to be dropped, found %+v", msg)
		}
	}
}
