package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kestrel-ai/kestrel/internal/httpclient"
	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// FileTool operates {upload, get, list} against the external file service.
// It never emits streaming events.
type FileTool struct {
	baseURL string
	client  *httpclient.Client
	timeout time.Duration
}

// NewFileTool builds the tool against the configured endpoint.
func NewFileTool(baseURL string, timeout time.Duration) *FileTool {
	return &FileTool{baseURL: baseURL, client: httpclient.New(), timeout: timeout}
}

// fileArgs is file's parameter schema source.
type fileArgs struct {
	Operation string `json:"operation" jsonschema:"required,enum=upload,enum=get,enum=list,description=Which file-service action to perform"`
	FileID    string `json:"fileId,omitempty" jsonschema:"description=File identifier, required for get"`
	Content   string `json:"content,omitempty" jsonschema:"description=File content to upload, required for upload"`
	FileName  string `json:"fileName,omitempty" jsonschema:"description=File name to upload, required for upload"`
}

func (t *FileTool) Info() Info {
	return Info{
		Name:        "file",
		Description: "Uploads, fetches, or lists files held by the file service.",
		Parameters:  generateSchema(&fileArgs{}),
	}
}

func (t *FileTool) Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult {
	var args fileArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return errorResult("file: invalid arguments: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	switch args.Operation {
	case "upload":
		return t.upload(ctx, args.FileName, args.Content)
	case "get":
		return t.get(ctx, args.FileID)
	case "list":
		return t.list(ctx)
	default:
		return errorResult("file: unsupported operation %q", args.Operation)
	}
}

func (t *FileTool) upload(ctx context.Context, fileName, content string) protocol.ToolResult {
	body, _ := json.Marshal(map[string]string{"fileName": fileName, "content": content})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/file_tool/upload_file_data", bytes.NewReader(body))
	if err != nil {
		return errorResult("file: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errorResult("file: upload failed: %v", err)
	}
	defer resp.Body.Close()

	var handle protocol.FileHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return errorResult("file: decoding upload response: %v", err)
	}
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "uploaded " + handle.FileName, Files: []protocol.FileHandle{handle}}
}

func (t *FileTool) get(ctx context.Context, fileID string) protocol.ToolResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/file_tool/get_file/%s", t.baseURL, fileID), nil)
	if err != nil {
		return errorResult("file: %v", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errorResult("file: get failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResult("file: reading response: %v", err)
	}
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: string(data)}
}

func (t *FileTool) list(ctx context.Context) protocol.ToolResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/file_tool/list", nil)
	if err != nil {
		return errorResult("file: %v", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errorResult("file: list failed: %v", err)
	}
	defer resp.Body.Close()

	var handles []protocol.FileHandle
	if err := json.NewDecoder(resp.Body).Decode(&handles); err != nil {
		return errorResult("file: decoding list response: %v", err)
	}
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Files: handles}
}
