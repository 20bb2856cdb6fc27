package tool

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

func TestCodeInterpreterConsolidatesStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"data\":{\"stage\":\"run\"}}\n\n")
		fmt.Fprint(w, "data: {\"isFinal\":true,\"summary\":\"done\",\"files\":[{\"fileName\":\"out.csv\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	tl := NewCodeInterpreterTool(server.URL, "req-1", true, time.Second)
	result := tl.Execute(t.Context(), Invocation{Printer: fakeSink{}}, `{"task":"sum a column"}`)

	require.Equal(t, protocol.ToolStatusOK, result.Status)
	require.Equal(t, "done", result.Content)
	require.Len(t, result.Files, 1)
	require.Equal(t, "out.csv", result.Files[0].FileName)
}

func TestDeepSearchConsolidatesBlockingResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"summary": "three sources found"})
	}))
	defer server.Close()

	tl := NewDeepSearchTool(server.URL, "req-2", 3, time.Second)
	result := tl.Execute(t.Context(), Invocation{}, `{"query":"golang generics"}`)

	require.Equal(t, protocol.ToolStatusOK, result.Status)
	require.Equal(t, "three sources found", result.Content)
}

func TestReportRejectsUnknownFormat(t *testing.T) {
	tl := NewReportTool("http://unused.invalid", time.Second)
	result := tl.Execute(t.Context(), Invocation{}, `{"format":"pdf"}`)
	require.Equal(t, protocol.ToolStatusError, result.Status)
}

func TestFileToolUploadsAndReturnsHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/file_tool/upload_file_data", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(protocol.FileHandle{FileName: "report.md", FileSize: 42})
	}))
	defer server.Close()

	tl := NewFileTool(server.URL, time.Second)
	result := tl.Execute(t.Context(), Invocation{}, `{"operation":"upload","fileName":"report.md","content":"hi"}`)

	require.Equal(t, protocol.ToolStatusOK, result.Status)
	require.Len(t, result.Files, 1)
	require.Equal(t, "report.md", result.Files[0].FileName)
}
