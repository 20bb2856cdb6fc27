package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// DeepSearchTool proxies a research query to the external deep-search
// sub-service, forwarding incremental "deep_search" SSE events (extend,
// search, report) and returning the consolidated ranked-document summary.
type DeepSearchTool struct {
	proxy     streamProxy
	requestID string
	maxLoop   int
}

// NewDeepSearchTool builds the tool against the configured endpoint.
func NewDeepSearchTool(baseURL, requestID string, maxLoop int, timeout time.Duration) *DeepSearchTool {
	return &DeepSearchTool{
		proxy:     newStreamProxy(baseURL+"/v1/tool/deepsearch", protocol.MessageTypeDeepSearch, timeout),
		requestID: requestID,
		maxLoop:   maxLoop,
	}
}

// deepSearchArgs is deep_search's parameter schema source.
type deepSearchArgs struct {
	Query string `json:"query" jsonschema:"required,description=The research question"`
}

func (t *DeepSearchTool) Info() Info {
	return Info{
		Name:        "deep_search",
		Description: "Performs iterative web research on a query and returns a ranked, cited set of findings.",
		Parameters:  generateSchema(&deepSearchArgs{}),
	}
}

func (t *DeepSearchTool) Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult {
	var args deepSearchArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return errorResult("deep_search: invalid arguments: %v", err)
	}

	result, err := t.proxy.call(ctx, inv.Printer, inv.ToolCall.ID, map[string]any{
		"query":     args.Query,
		"requestId": t.requestID,
		"maxLoop":   t.maxLoop,
	})
	if err != nil {
		return errorResult("deep_search: %v", err)
	}
	return result
}
