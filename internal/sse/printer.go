// Package sse implements the per-request progress bus: a single serializing
// worker that drains a bounded queue of typed events onto one HTTP
// ResponseWriter, with a heartbeat ticker and deadline-aware close.
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// DefaultHeartbeatInterval is how often the keepalive heartbeat fires.
const DefaultHeartbeatInterval = 10 * time.Second

// DefaultQueueSize bounds the number of frames a Printer will buffer before
// treating the channel as overflowed.
const DefaultQueueSize = 256

// CloseReason records why a Printer stopped emitting.
type CloseReason string

const (
	CloseReasonDone      CloseReason = "done"
	CloseReasonTimeout   CloseReason = "timeout"
	CloseReasonError     CloseReason = "error"
	CloseReasonCancelled CloseReason = "cancelled"
)

// Printer serializes SSEEvents onto a single http.ResponseWriter. Send is
// safe to call concurrently from multiple tool goroutines; a single
// internal worker goroutine is the only thing that ever touches w.
type Printer struct {
	w       http.ResponseWriter
	flusher http.Flusher

	queue chan protocol.SSEEvent

	heartbeatInterval time.Duration
	deadline          time.Time

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// Option overrides one of New's defaults; config-driven callers use these
// instead of poking at Printer's unexported fields directly.
type Option func(*printerOptions)

type printerOptions struct {
	heartbeatInterval time.Duration
	queueSize         int
}

// WithHeartbeatInterval overrides DefaultHeartbeatInterval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(o *printerOptions) { o.heartbeatInterval = d }
}

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(o *printerOptions) { o.queueSize = n }
}

// New constructs a Printer writing SSE frames to w. deadline is the
// request's absolute end-to-end deadline (default: 1 hour from now).
func New(w http.ResponseWriter, deadline time.Time, opts ...Option) (*Printer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}

	o := printerOptions{heartbeatInterval: DefaultHeartbeatInterval, queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	p := &Printer{
		w:                 w,
		flusher:           flusher,
		queue:             make(chan protocol.SSEEvent, o.queueSize),
		heartbeatInterval: o.heartbeatInterval,
		deadline:          deadline,
		done:              make(chan struct{}),
	}
	return p, nil
}

// Run starts the serializing worker and the heartbeat/deadline watchers. It
// blocks until the Printer is closed, so Send/Close are called from other
// goroutines.
func (p *Printer) Run(ctx context.Context) {
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	var deadlineCh <-chan time.Time
	if !p.deadline.IsZero() {
		timer := time.NewTimer(time.Until(p.deadline))
		defer timer.Stop()
		deadlineCh = timer.C
	}

	for {
		select {
		case ev, ok := <-p.queue:
			if !ok {
				return
			}
			p.write(ev)
			if ev.IsFinal && ev.MessageType == protocol.MessageTypeResult {
				p.finish(CloseReasonDone)
				return
			}
		case <-ticker.C:
			p.write(protocol.SSEEvent{
				MessageID:   uuid.NewString(),
				MessageType: protocol.MessageTypeHeartbeat,
				ResultMap:   json.RawMessage(`{}`),
			})
		case <-deadlineCh:
			if !p.drain() {
				p.emitTimeoutResult()
			}
			p.finish(CloseReasonTimeout)
			return
		case <-ctx.Done():
			// A ctx whose deadline expired is the request timeout (the server
			// derives ctx from the same absolute deadline the Printer's own
			// timer watches, and either may fire first); anything else is the
			// client hanging up, which gets an abrupt close with no final
			// frame.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if !p.drain() {
					p.emitTimeoutResult()
				}
				p.finish(CloseReasonTimeout)
				return
			}
			p.finish(CloseReasonCancelled)
			return
		case <-p.done:
			p.drain()
			return
		}
	}
}

// drain flushes events still queued when the Printer is told to close, so a
// final result enqueued immediately before Close is never lost to the
// worker's select ordering. It stops after a terminal result frame (nothing
// may follow the final event) and reports whether it wrote one.
func (p *Printer) drain() bool {
	for {
		select {
		case ev := <-p.queue:
			p.write(ev)
			if ev.IsFinal && ev.MessageType == protocol.MessageTypeResult {
				return true
			}
		default:
			return false
		}
	}
}

// Send enqueues an event for delivery. It never blocks the caller beyond
// the queue's capacity; if the queue is full the Printer treats this as a
// fatal stream error and closes with status=error.
func (p *Printer) Send(ev protocol.SSEEvent) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	select {
	case p.queue <- ev:
	default:
		slog.Error("sse: outbound queue overflow, closing stream", "messageId", ev.MessageID)
		p.Close(CloseReasonError)
	}
}

// SendResult is a convenience for emitting the terminal result event.
func (p *Printer) SendResult(status protocol.ResultStatus, result string, files []protocol.FileHandle) {
	payload, _ := json.Marshal(protocol.ResultPayload{Status: status, Result: result, FileList: files})
	p.Send(protocol.SSEEvent{
		MessageID:   uuid.NewString(),
		MessageType: protocol.MessageTypeResult,
		ResultMap:   payload,
		IsFinal:     true,
	})
}

func (p *Printer) emitTimeoutResult() {
	payload, _ := json.Marshal(protocol.ResultPayload{Status: protocol.ResultTimeout, Result: "request deadline exceeded"})
	p.write(protocol.SSEEvent{
		MessageID:   uuid.NewString(),
		MessageType: protocol.MessageTypeResult,
		ResultMap:   payload,
		IsFinal:     true,
	})
}

func (p *Printer) write(ev protocol.SSEEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("sse: failed to marshal event", "error", err)
		return
	}
	if _, err := fmt.Fprintf(p.w, "data: %s\n\n", data); err != nil {
		slog.Warn("sse: write failed, client likely disconnected", "error", err)
		return
	}
	p.flusher.Flush()
}

// Close flushes remaining events and idempotently tears down the Printer.
// Calling Close twice is a no-op on the wire.
func (p *Printer) Close(reason CloseReason) {
	p.finish(reason)
}

func (p *Printer) finish(reason CloseReason) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	slog.Debug("sse: printer closed", "reason", reason)
}
