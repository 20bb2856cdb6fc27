package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

func TestPrinterDeliversEventsInOrderThenCloses(t *testing.T) {
	rec := httptest.NewRecorder()
	p, err := New(rec, time.Now().Add(time.Hour))
	require.NoError(t, err)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		p.Send(protocol.SSEEvent{
			MessageID:   "m",
			MessageType: protocol.MessageTypeToolThought,
			ResultMap:   json.RawMessage(`{"toolThought":"step"}`),
		})
	}
	p.SendResult(protocol.ResultSuccess, "4", nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not close after final event")
	}

	lines := parseDataLines(rec.Body.String())
	require.Len(t, lines, 4)
	require.True(t, lines[3].IsFinal)
	require.Equal(t, protocol.MessageTypeResult, lines[3].MessageType)
}

func TestPrinterCloseAfterSendStillDeliversFinalResult(t *testing.T) {
	// The orchestrator enqueues the terminal result and immediately calls
	// Close; the worker must flush the queue before shutting down rather
	// than racing the close signal against the pending frame.
	rec := httptest.NewRecorder()
	p, err := New(rec, time.Now().Add(time.Hour))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	p.SendResult(protocol.ResultSuccess, "finished", nil)
	p.Close(CloseReasonDone)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not close")
	}

	lines := parseDataLines(rec.Body.String())
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1]
	require.True(t, last.IsFinal)
	require.Equal(t, protocol.MessageTypeResult, last.MessageType)
}

func TestPrinterDeadlineEmitsTimeoutResult(t *testing.T) {
	rec := httptest.NewRecorder()
	p, err := New(rec, time.Now().Add(30*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not close on deadline")
	}

	lines := parseDataLines(rec.Body.String())
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1]
	require.True(t, last.IsFinal)
	require.Equal(t, protocol.MessageTypeResult, last.MessageType)
	require.Contains(t, string(last.ResultMap), `"timeout"`)
}

func TestPrinterCloseIsIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	p, err := New(rec, time.Now().Add(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Close(CloseReasonDone)
	p.Close(CloseReasonDone)
}

func parseDataLines(body string) []protocol.SSEEvent {
	var events []protocol.SSEEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev protocol.SSEEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err == nil {
			events = append(events, ev)
		}
	}
	return events
}
