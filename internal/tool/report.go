package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// ReportTool proxies report generation to the external report sub-service,
// emitting format-appropriate SSE events (html, markdown, or ppt) as the
// report streams in.
type ReportTool struct {
	baseURL string
	timeout time.Duration
}

// NewReportTool builds the tool against the configured endpoint.
func NewReportTool(baseURL string, timeout time.Duration) *ReportTool {
	return &ReportTool{baseURL: baseURL, timeout: timeout}
}

// reportArgs is report's parameter schema source.
type reportArgs struct {
	FileNames []string `json:"fileNames,omitempty" jsonschema:"description=Source files to build the report from"`
	Format    string   `json:"format" jsonschema:"required,enum=html,enum=markdown,enum=ppt,description=Output report format"`
}

func (t *ReportTool) Info() Info {
	return Info{
		Name:        "report",
		Description: "Generates a formatted report (html, markdown, or ppt) from a set of source files.",
		Parameters:  generateSchema(&reportArgs{}),
	}
}

func (t *ReportTool) Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult {
	var args reportArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return errorResult("report: invalid arguments: %v", err)
	}

	messageType, err := formatMessageType(args.Format)
	if err != nil {
		return errorResult("report: %v", err)
	}

	proxy := newStreamProxy(t.baseURL+"/v1/tool/report", messageType, t.timeout)
	result, err := proxy.call(ctx, inv.Printer, inv.ToolCall.ID, map[string]any{
		"fileNames": args.FileNames,
		"format":    args.Format,
	})
	if err != nil {
		return errorResult("report: %v", err)
	}
	return result
}

func formatMessageType(format string) (protocol.MessageType, error) {
	switch format {
	case "html":
		return protocol.MessageTypeHTML, nil
	case "markdown":
		return protocol.MessageTypeMarkdown, nil
	case "ppt":
		return protocol.MessageTypePPT, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", format)
	}
}
