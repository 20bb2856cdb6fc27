package tool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

type fakeSink struct{}

func (fakeSink) Send(protocol.SSEEvent) {}

type orderedTool struct {
	name  string
	delay time.Duration
}

func (t orderedTool) Info() Info { return Info{Name: t.name} }

func (t orderedTool) Execute(ctx context.Context, inv Invocation, args string) protocol.ToolResult {
	time.Sleep(t.delay)
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: t.name}
}

type failingTool struct{}

func (failingTool) Info() Info { return Info{Name: "boom"} }

func (failingTool) Execute(ctx context.Context, inv Invocation, args string) protocol.ToolResult {
	return protocol.ToolResult{Status: protocol.ToolStatusError, Content: "kaboom"}
}

func TestRegisterReplacesDuplicateWithWarning(t *testing.T) {
	c := NewCollection()
	c.Register(orderedTool{name: "t"})
	c.Register(orderedTool{name: "t", delay: time.Millisecond})

	tl, ok := c.Get("t")
	require.True(t, ok)
	require.Equal(t, time.Millisecond, tl.(orderedTool).delay)
}

func TestExecuteManyPreservesCallOrderRegardlessOfFinishOrder(t *testing.T) {
	c := NewCollection()
	c.Register(orderedTool{name: "A", delay: 30 * time.Millisecond})
	c.Register(orderedTool{name: "B", delay: 10 * time.Millisecond})
	c.Register(orderedTool{name: "C", delay: 20 * time.Millisecond})

	calls := []protocol.ToolCall{
		{ID: "1", Name: "A"},
		{ID: "2", Name: "B"},
		{ID: "3", Name: "C"},
	}

	results := c.ExecuteMany(context.Background(), fakeSink{}, calls)
	ordered := results.Ordered()
	require.Len(t, ordered, 3)
	require.Equal(t, "1", ordered[0].ID)
	require.Equal(t, "2", ordered[1].ID)
	require.Equal(t, "3", ordered[2].ID)
	require.Equal(t, "A", ordered[0].Result.Content)
}

func TestExecuteManyFoldsFailureWithoutAbortingSiblings(t *testing.T) {
	c := NewCollection()
	c.Register(failingTool{})
	c.Register(orderedTool{name: "ok"})

	calls := []protocol.ToolCall{{ID: "1", Name: "boom"}, {ID: "2", Name: "ok"}}
	results := c.ExecuteMany(context.Background(), fakeSink{}, calls)

	r1, _ := results.Get("1")
	r2, _ := results.Get("2")
	require.Equal(t, protocol.ToolStatusError, r1.Status)
	require.Equal(t, protocol.ToolStatusOK, r2.Status)
}

func TestExecuteManyReportsCancellation(t *testing.T) {
	c := NewCollection()
	c.Register(orderedTool{name: "slow", delay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := c.ExecuteMany(ctx, fakeSink{}, []protocol.ToolCall{{ID: "1", Name: "slow"}})
	r, _ := results.Get("1")
	require.Equal(t, protocol.ToolStatusError, r.Status)
	require.Equal(t, "cancelled", r.Content)
}
