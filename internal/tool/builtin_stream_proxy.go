package tool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-ai/kestrel/internal/httpclient"
	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// streamProxy is the shared shape behind CodeInterpreterTool and
// DeepSearchTool: POST a JSON body to an upstream sub-service, forward its
// SSE response chunk-by-chunk as a given MessageType, and fold the final
// chunk into a consolidated ToolResult.
type streamProxy struct {
	client      *httpclient.Client
	endpoint    string
	messageType protocol.MessageType
	timeout     time.Duration
}

func newStreamProxy(endpoint string, messageType protocol.MessageType, timeout time.Duration) streamProxy {
	return streamProxy{
		client:      httpclient.New(),
		endpoint:    endpoint,
		messageType: messageType,
		timeout:     timeout,
	}
}

// chunk is the shape each upstream SSE frame is expected to carry; fields a
// specific tool doesn't use are simply left at their zero value.
type chunk struct {
	Data    json.RawMessage       `json:"data,omitempty"`
	IsFinal bool                  `json:"isFinal,omitempty"`
	Files   []protocol.FileHandle `json:"files,omitempty"`
	Summary string                `json:"summary,omitempty"`
}

func (p streamProxy) call(ctx context.Context, sink EventSink, messageID string, requestBody any) (protocol.ToolResult, error) {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return protocol.ToolResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return protocol.ToolResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return protocol.ToolResult{}, err
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return p.consolidateBlocking(resp.Body)
	}
	return p.consolidateStream(ctx, resp.Body, sink, messageID)
}

func (p streamProxy) consolidateBlocking(body io.Reader) (protocol.ToolResult, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return protocol.ToolResult{}, err
	}
	var c chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: string(data)}, nil
	}
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: c.Summary, Files: c.Files}, nil
}

func (p streamProxy) consolidateStream(ctx context.Context, body io.Reader, sink EventSink, messageID string) (protocol.ToolResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var finalFiles []protocol.FileHandle
	var summary strings.Builder

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return protocol.ToolResult{Status: protocol.ToolStatusError, Content: "cancelled"}, nil
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

		var c chunk
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			continue
		}

		id := messageID
		if id == "" {
			id = uuid.NewString()
		}
		if sink != nil {
			sink.Send(protocol.SSEEvent{
				MessageID:   id,
				MessageType: p.messageType,
				ResultMap:   c.Data,
				IsFinal:     c.IsFinal,
			})
		}
		if c.IsFinal {
			finalFiles = c.Files
			summary.WriteString(c.Summary)
		}
	}
	if err := scanner.Err(); err != nil {
		return protocol.ToolResult{}, err
	}

	return protocol.ToolResult{
		Status:  protocol.ToolStatusOK,
		Content: summary.String(),
		Files:   finalFiles,
	}, nil
}

func errorResult(format string, args ...any) protocol.ToolResult {
	return protocol.ToolResult{Status: protocol.ToolStatusError, Content: fmt.Sprintf(format, args...)}
}
