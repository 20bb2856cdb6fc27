package tool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/registry"
)

// Collection is the per-request mutable mapping from tool name to Tool.
// Registration replaces any existing entry under the same name, logging a
// warning.
type Collection struct {
	reg *registry.BaseRegistry[Tool]

	mu        sync.RWMutex
	employees map[string]string // tool name -> digital-employee persona label

	metrics *observability.Metrics
}

// NewCollection builds an empty tool collection.
func NewCollection() *Collection {
	return &Collection{
		reg:       registry.NewBaseRegistry[Tool](),
		employees: make(map[string]string),
	}
}

// WithMetrics attaches a metrics sink every subsequent ExecuteOne/ExecuteMany
// call records to. m may be nil, in which case recording is a no-op.
func (c *Collection) WithMetrics(m *observability.Metrics) *Collection {
	c.metrics = m
	return c
}

// Register adds t, replacing and warning about any prior tool of the same name.
func (c *Collection) Register(t Tool) {
	name := t.Info().Name
	if replaced := c.reg.Upsert(name, t); replaced {
		slog.Warn("tool: duplicate registration, replacing previous tool", "name", name)
	}
}

// SetEmployee attaches an optional persona label to a tool name, surfaced
// as SSEEvent.DigitalEmployee when that tool's events are emitted.
func (c *Collection) SetEmployee(toolName, employee string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.employees[toolName] = employee
}

// Employee returns the persona label registered for toolName, if any.
func (c *Collection) Employee(toolName string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.employees[toolName]
}

// Get looks up a tool by name.
func (c *Collection) Get(name string) (Tool, bool) {
	return c.reg.Get(name)
}

// Infos returns the Info of every registered tool, for advertisement to the LLM.
func (c *Collection) Infos() []Info {
	tools := c.reg.List()
	infos := make([]Info, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, t.Info())
	}
	return infos
}

// Remove deletes a registered tool by name.
func (c *Collection) Remove(name string) error {
	return c.reg.Remove(name)
}

// ExecuteOne runs a single tool call synchronously.
func (c *Collection) ExecuteOne(ctx context.Context, sink EventSink, call protocol.ToolCall) protocol.ToolResult {
	t, ok := c.Get(call.Name)
	if !ok {
		return protocol.ToolResult{
			Status:  protocol.ToolStatusError,
			Content: "unknown tool: " + call.Name,
		}
	}

	select {
	case <-ctx.Done():
		return protocol.ToolResult{Status: protocol.ToolStatusError, Content: "cancelled"}
	default:
	}

	ctx, span := observability.Start(ctx, "kestrel/tool", call.Name)
	defer span.End()

	start := time.Now()
	res := t.Execute(ctx, Invocation{Printer: sink, ToolCall: call}, call.Arguments)

	outcome := "ok"
	if res.Status == protocol.ToolStatusError {
		outcome = "error"
	}
	c.metrics.ObserveToolCall(call.Name, outcome, time.Since(start))

	return res
}

// resultEntry pairs a ToolCall's id with its result for ordered recombination.
type resultEntry struct {
	id     string
	result protocol.ToolResult
}

// ExecuteMany runs each call on its own goroutine, joins them with a
// barrier, and returns an ordered map (insertion order == calls order)
// regardless of completion order. A single task's failure is folded into
// its own entry as status=error and never aborts its siblings.
func (c *Collection) ExecuteMany(ctx context.Context, sink EventSink, calls []protocol.ToolCall) *OrderedResults {
	results := make([]resultEntry, len(calls))

	// Each goroutine always returns nil: a tool failure is folded into its
	// own result entry, not surfaced as a group error, so one failing
	// ToolCall never aborts or cancels its siblings.
	var g errgroup.Group
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = resultEntry{id: call.ID, result: protocol.ToolResult{
						Status:  protocol.ToolStatusError,
						Content: "tool panicked",
					}}
				}
			}()

			select {
			case <-ctx.Done():
				results[i] = resultEntry{id: call.ID, result: protocol.ToolResult{
					Status:  protocol.ToolStatusError,
					Content: "cancelled",
				}}
				return nil
			default:
			}

			res := c.ExecuteOne(ctx, sink, call)
			results[i] = resultEntry{id: call.ID, result: res}
			return nil
		})
	}
	_ = g.Wait()

	ordered := newOrderedResults()
	for _, entry := range results {
		ordered.set(entry.id, entry.result)
	}
	return ordered
}

// OrderedResults is an insertion-ordered map<toolCallId, ToolResult>.
type OrderedResults struct {
	order []string
	byID  map[string]protocol.ToolResult
}

func newOrderedResults() *OrderedResults {
	return &OrderedResults{byID: make(map[string]protocol.ToolResult)}
}

func (o *OrderedResults) set(id string, res protocol.ToolResult) {
	if _, exists := o.byID[id]; !exists {
		o.order = append(o.order, id)
	}
	o.byID[id] = res
}

// Get returns the result for a given ToolCall id.
func (o *OrderedResults) Get(id string) (protocol.ToolResult, bool) {
	r, ok := o.byID[id]
	return r, ok
}

// Ordered returns (id, result) pairs in the original ToolCall order.
func (o *OrderedResults) Ordered() []struct {
	ID     string
	Result protocol.ToolResult
} {
	out := make([]struct {
		ID     string
		Result protocol.ToolResult
	}, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, struct {
			ID     string
			Result protocol.ToolResult
		}{ID: id, Result: o.byID[id]})
	}
	return out
}
