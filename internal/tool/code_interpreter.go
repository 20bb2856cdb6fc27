package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// CodeInterpreterTool proxies execution to the external code-interpreter
// sub-service, forwarding its incremental "code" SSE events and returning
// the final artifact list once the upstream stream completes.
type CodeInterpreterTool struct {
	proxy     streamProxy
	requestID string
	streamOn  bool
}

// NewCodeInterpreterTool builds the tool against the configured endpoint.
func NewCodeInterpreterTool(baseURL, requestID string, stream bool, timeout time.Duration) *CodeInterpreterTool {
	return &CodeInterpreterTool{
		proxy:     newStreamProxy(baseURL+"/v1/tool/code_interpreter", protocol.MessageTypeCode, timeout),
		requestID: requestID,
		streamOn:  stream,
	}
}

// codeInterpreterArgs is code_interpreter's parameter schema source: its
// struct tags are reflected into JSON Schema by generateSchema.
type codeInterpreterArgs struct {
	Task      string   `json:"task" jsonschema:"required,description=What the code should accomplish"`
	FileNames []string `json:"fileNames,omitempty" jsonschema:"description=Input files available to the task"`
}

func (t *CodeInterpreterTool) Info() Info {
	return Info{
		Name:        "code_interpreter",
		Description: "Executes code to perform computation, data analysis, or file generation and returns the produced artifacts.",
		Parameters:  generateSchema(&codeInterpreterArgs{}),
	}
}

func (t *CodeInterpreterTool) Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult {
	var args codeInterpreterArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return errorResult("code_interpreter: invalid arguments: %v", err)
	}

	result, err := t.proxy.call(ctx, inv.Printer, inv.ToolCall.ID, map[string]any{
		"task":       args.Task,
		"fileNames":  args.FileNames,
		"requestId":  t.requestID,
		"streamMode": t.streamOn,
	})
	if err != nil {
		return errorResult("code_interpreter: %v", err)
	}
	return result
}
