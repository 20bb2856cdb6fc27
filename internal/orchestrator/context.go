// Package orchestrator implements the request-scoped AgentContext and the
// Orchestrator that selects a top-level agent by request mode, drives it to
// completion, and converts the outcome into the terminal SSE result event.
package orchestrator

import (
	"time"

	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// AgentContext is the per-request singleton: it owns one Printer, one
// mutable ToolCollection, and a sub-agent-name -> Memory mapping, and is
// mutated only by its own Orchestrator.Run call and that call's children.
// It is never shared across requests and carries no back-pointer into the
// tools it owns: tools receive a Printer through Invocation, not the
// context itself.
type AgentContext struct {
	RequestID   string
	SessionID   string
	Query       string
	Mode        protocol.Mode
	OutputStyle protocol.OutputStyle
	Stream      bool

	// Deadline is the request's absolute end-to-end deadline, the same
	// instant the Printer's own timer and the agent-facing ctx watch.
	Deadline time.Time

	// TaskSummary accumulates the joined stage results a plan-mode run
	// hands to its SummaryAgent; react mode leaves it empty.
	TaskSummary string

	Printer  *sse.Printer
	Tools    *tool.Collection
	Memories map[string]*memory.Memory
}

// NewAgentContext builds a request-scoped AgentContext from a decoded
// RunRequest and the Printer/ToolCollection the server wired for it. The
// ToolCollection passed in must not already carry a "planning" tool: only
// plan mode's PlanningAgent ever registers one, so react mode naturally
// never advertises it.
func NewAgentContext(req protocol.RunRequest, printer *sse.Printer, tools *tool.Collection) *AgentContext {
	return &AgentContext{
		RequestID:   req.RequestID,
		SessionID:   req.SessionID,
		Query:       req.Query,
		Mode:        req.Mode,
		OutputStyle: req.OutputStyle,
		Stream:      req.Stream,
		Printer:     printer,
		Tools:       tools,
		Memories:    make(map[string]*memory.Memory),
	}
}
