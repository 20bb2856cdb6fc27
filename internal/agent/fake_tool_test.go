package agent

import (
	"context"
	"strconv"

	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// echoTool returns a fixed result for every call, recording the arguments it
// was invoked with so tests can assert call ordering and count.
type echoTool struct {
	name   string
	result protocol.ToolResult
	calls  *[]string
}

func (t echoTool) Info() tool.Info {
	return tool.Info{Name: t.name, Description: "test tool"}
}

func (t echoTool) Execute(ctx context.Context, inv tool.Invocation, args string) protocol.ToolResult {
	if t.calls != nil {
		*t.calls = append(*t.calls, t.name)
	}
	return t.result
}

// countingTool returns a distinct result each call so repeated invocations
// never look like a stalled (identical-output) run.
type countingTool struct {
	name string
	n    int
}

func (t *countingTool) Info() tool.Info {
	return tool.Info{Name: t.name, Description: "test tool"}
}

func (t *countingTool) Execute(ctx context.Context, inv tool.Invocation, args string) protocol.ToolResult {
	t.n++
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: t.name + "-" + strconv.Itoa(t.n)}
}
