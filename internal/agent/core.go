// Package agent implements the run-loop shared by every agent kind
// (ReAct, planning, executor, summary) as composition rather than
// inheritance: a common AgentCore struct carrying state and step
// bookkeeping, and a single RunLoop driver that accepts anything
// implementing Stepper.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// DefaultMaxSteps and DefaultDuplicateThreshold are the step budget and
// consecutive-failure cutoff every agent starts with.
const (
	DefaultMaxSteps           = 10
	DefaultDuplicateThreshold = 2
)

// AgentCore holds the fields every concrete agent needs, composed into
// concrete agents rather than inherited.
type AgentCore struct {
	Name               string
	Description        string
	SystemPrompt       string
	NextStepPrompt     string
	Memory             *memory.Memory
	State              protocol.AgentState
	CurrentStep        int
	MaxSteps           int
	DuplicateThreshold int

	LLM       llm.Provider
	Tools     *tool.Collection
	Printer   *sse.Printer
	MessageID string

	// Metrics is optional; nil (the zero value) means "record nothing" and
	// every RunLoop call site stays safe without a config-driven caller
	// ever having to construct a no-op Metrics.
	Metrics *observability.Metrics
}

// WithMetrics attaches m to core for RunLoop to report run-level
// observability through, returning core for chaining at the call site.
func (c *AgentCore) WithMetrics(m *observability.Metrics) *AgentCore {
	c.Metrics = m
	return c
}

// NewCore builds an AgentCore with the default step limits. Callers
// override MaxSteps/DuplicateThreshold after construction if config says
// otherwise.
func NewCore(name, description, systemPrompt string, mem *memory.Memory, llmClient llm.Provider, tools *tool.Collection, printer *sse.Printer) *AgentCore {
	return &AgentCore{
		Name:               name,
		Description:        description,
		SystemPrompt:       systemPrompt,
		Memory:             mem,
		State:              protocol.StateIdle,
		MaxSteps:           DefaultMaxSteps,
		DuplicateThreshold: DefaultDuplicateThreshold,
		LLM:                llmClient,
		Tools:              tools,
		Printer:            printer,
	}
}

// Outcome is the result sum type a Step returns: exactly one of its four
// constructors is used to build a value, and Kind tells the driver which.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// OutcomeKind tags which variant of Outcome is populated.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeStall
	OutcomeLimit
	OutcomeError
)

func OK(text string) Outcome   { return Outcome{Kind: OutcomeOK, Text: text} }
func Stall() Outcome           { return Outcome{Kind: OutcomeStall} }
func Limit() Outcome           { return Outcome{Kind: OutcomeLimit} }
func Failed(err error) Outcome { return Outcome{Kind: OutcomeError, Err: err} }

// Stepper is implemented by anything RunLoop can drive: a single step()
// call that advances the agent by one think/act cycle (or, for
// single-shot agents, completes the entire run on its first call). ctx
// carries the request's cancellation token and deadline down to every LLM
// call and tool invocation a step makes.
type Stepper interface {
	Step(ctx context.Context, core *AgentCore) Outcome
}

// RunLoop is the shared driver every concrete agent's Run method calls.
// It owns the run state machine: append the user query,
// loop while running and under the step budget, detect a stall by
// comparing the last two step outputs textually, and record any error
// into memory before surfacing it. A cancelled or expired ctx surfaces as
// a protocol.ErrCancelled-wrapping error from the stepper's next Step
// call; RunLoop itself does not poll ctx between steps.
func RunLoop(ctx context.Context, core *AgentCore, stepper Stepper, query string) (string, error) {
	start := time.Now()
	ctx, span := observability.Start(ctx, "kestrel/agent", core.Name+".run")
	defer span.End()

	core.Memory.Append(protocol.Message{Role: protocol.RoleUser, Content: query})
	core.State = protocol.StateRunning
	core.CurrentStep = 0

	var lastOutput, previousOutput string
	var lastErr error
	consecutiveFailures := 0

	for core.State == protocol.StateRunning && core.CurrentStep < core.MaxSteps {
		core.CurrentStep++

		outcome := stepper.Step(ctx, core)
		switch outcome.Kind {
		case OutcomeOK:
			consecutiveFailures = 0
			previousOutput, lastOutput = lastOutput, outcome.Text
			if core.CurrentStep > 1 && lastOutput != "" && lastOutput == previousOutput {
				core.State = protocol.StateFinished
			}
		case OutcomeStall:
			lastOutput = outcome.Text
			core.State = protocol.StateFinished
		case OutcomeLimit:
			lastOutput = outcome.Text
			core.State = protocol.StateFinished
		case OutcomeError:
			lastErr = outcome.Err
			consecutiveFailures++
			core.Memory.Append(protocol.Message{
				Role:    protocol.RoleAssistant,
				Content: fmt.Sprintf("error: %v", outcome.Err),
			})
			slog.Warn("agent: step failed, retrying if under threshold", "agent", core.Name, "step", core.CurrentStep, "error", outcome.Err, "consecutiveFailures", consecutiveFailures)

			// The duplicateThreshold rule: two (configurable) consecutive
			// failing steps terminate the run as an error rather than
			// retrying indefinitely.
			if consecutiveFailures >= core.DuplicateThreshold {
				core.State = protocol.StateError
			}
		}
	}

	if core.State == protocol.StateRunning {
		// Exhausted the step budget without the stepper itself reporting it.
		core.State = protocol.StateFinished
	}

	core.Metrics.ObserveAgentRun(core.Name, string(core.State), time.Since(start), core.CurrentStep)

	if core.State == protocol.StateError {
		return lastOutput, lastErr
	}
	return lastOutput, nil
}
