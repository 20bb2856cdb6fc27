package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kestrel-ai/kestrel/internal/agent"
	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/observability"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// Orchestrator picks PlanningAgent or ExecutorAgent by request mode, drives
// it to completion, and always emits exactly one terminal "result" event
// before closing its Printer.
type Orchestrator struct {
	LLM     llm.Provider
	Metrics *observability.Metrics

	// MaxSteps and DuplicateThreshold override agent.DefaultMaxSteps /
	// agent.DefaultDuplicateThreshold when positive; zero means "use the
	// agent package's own defaults" (see applyLimits).
	MaxSteps           int
	DuplicateThreshold int

	// Prompts overrides the agent package's authored defaults when set,
	// sourced from internal/config's PromptsConfig block.
	Prompts PromptOverrides
}

// PromptOverrides carries non-empty per-agent-kind prompt overrides. A
// zero-value field means "keep the agent package's default".
type PromptOverrides struct {
	PlanningSystem   string
	PlanningNextStep string
	ReActSystem      string
	ExecutorSystem   string
	ExecutorNextStep string
	SummarySystem    string

	// OutputStyleMap overrides agent.DefaultOutputStyleInstructions entry
	// by entry, keyed by the request's outputStyle value.
	OutputStyleMap map[string]string
}

// Option configures an Orchestrator beyond its required LLM provider.
type Option func(*Orchestrator)

// WithAgentLimits overrides the step budget and stall-failure threshold
// every agent this Orchestrator constructs runs under, sourced from
// internal/config's AgentConfig block.
func WithAgentLimits(maxSteps, duplicateThreshold int) Option {
	return func(o *Orchestrator) {
		o.MaxSteps = maxSteps
		o.DuplicateThreshold = duplicateThreshold
	}
}

// WithPrompts overrides the agent package's authored default prompts with
// any non-empty fields of p.
func WithPrompts(p PromptOverrides) Option {
	return func(o *Orchestrator) { o.Prompts = p }
}

// New builds an Orchestrator around the given LLM provider. One Orchestrator
// is reusable across requests; it holds no per-request state itself (that
// lives in AgentContext). metrics may be nil when the process wasn't
// started with metrics enabled.
func New(llmClient llm.Provider, metrics *observability.Metrics, opts ...Option) *Orchestrator {
	o := &Orchestrator{LLM: llmClient, Metrics: metrics}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// applyLimits overrides core's step budget fields when the Orchestrator was
// configured with non-default agent limits.
func (o *Orchestrator) applyLimits(core *agent.AgentCore) {
	if o.MaxSteps > 0 {
		core.MaxSteps = o.MaxSteps
	}
	if o.DuplicateThreshold > 0 {
		core.DuplicateThreshold = o.DuplicateThreshold
	}
}

// Run drives actx's request to completion. Any agent error (including a
// panic recovered at this boundary) is folded into a status=error result;
// a cancelled or deadline-expired ctx is folded into status=timeout. The
// Printer's own deadline watcher may have already emitted a timeout result
// and closed concurrently — both SendResult and Close are safe to call on
// an already-closed Printer, so no extra coordination is needed here.
func (o *Orchestrator) Run(ctx context.Context, actx *AgentContext) {
	result, err := o.runAgent(ctx, actx)

	switch {
	case err == nil:
		actx.Printer.SendResult(protocol.ResultSuccess, result, nil)
	case protocol.IsCancelled(err):
		actx.Printer.SendResult(protocol.ResultTimeout, "request deadline exceeded", nil)
	default:
		slog.Warn("orchestrator: request failed", "requestId", actx.RequestID, "mode", actx.Mode, "error", err)
		actx.Printer.SendResult(protocol.ResultError, err.Error(), nil)
	}
	actx.Printer.Close(sse.CloseReasonDone)
}

func (o *Orchestrator) runAgent(ctx context.Context, actx *AgentContext) (result string, err error) {
	// Any agent exception is caught at the orchestrator boundary: a
	// panicking Stepper must still resolve to a result event, not an
	// unhandled crash of the request's worker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	switch actx.Mode {
	case protocol.ModePlan:
		return o.runPlan(ctx, actx)
	default:
		return o.runReact(ctx, actx)
	}
}

func (o *Orchestrator) runPlan(ctx context.Context, actx *AgentContext) (string, error) {
	mem := memory.New()
	actx.Memories["planner"] = mem

	planner := agent.NewPlanningAgent(mem, o.LLM, actx.Tools, actx.Printer, actx.Query, actx.Stream)
	planner.Core.WithMetrics(o.Metrics)
	o.applyLimits(planner.Core)
	if o.Prompts.PlanningSystem != "" {
		planner.Core.SystemPrompt = o.Prompts.PlanningSystem
	}
	if o.Prompts.PlanningNextStep != "" {
		planner.Core.NextStepPrompt = o.Prompts.PlanningNextStep
	}
	if o.Prompts.ExecutorSystem != "" {
		planner.StageSystemPrompt = o.Prompts.ExecutorSystem
	}
	if o.Prompts.ExecutorNextStep != "" {
		planner.StageNextStepPrompt = o.Prompts.ExecutorNextStep
	}
	taskSummary, err := planner.Run(ctx)
	if err != nil {
		return "", err
	}

	actx.TaskSummary = taskSummary

	summarizer := agent.NewSummaryAgent(o.LLM, actx.Printer)
	if o.Prompts.SummarySystem != "" {
		summarizer.SystemPrompt = o.Prompts.SummarySystem
	}
	if s := o.styleInstruction(actx.OutputStyle); s != "" {
		summarizer.SystemPrompt += "\n\n" + s
	}
	return summarizer.Summarize(ctx, actx.Query, taskSummary)
}

// styleInstruction resolves the rendering instruction for a request's
// outputStyle: a configured override wins, then the agent package's
// defaults; the default style maps to nothing.
func (o *Orchestrator) styleInstruction(style protocol.OutputStyle) string {
	if s, ok := o.Prompts.OutputStyleMap[string(style)]; ok {
		return s
	}
	return agent.DefaultOutputStyleInstructions[style]
}

func (o *Orchestrator) runReact(ctx context.Context, actx *AgentContext) (string, error) {
	mem := memory.New()
	actx.Memories["react"] = mem

	exec := agent.NewExecutorAgent("react", mem, o.LLM, actx.Tools, actx.Printer, actx.Stream)
	exec.Core().WithMetrics(o.Metrics)
	o.applyLimits(exec.Core())
	if o.Prompts.ReActSystem != "" {
		exec.Core().SystemPrompt = o.Prompts.ReActSystem
	}
	if s := o.styleInstruction(actx.OutputStyle); s != "" {
		exec.Core().SystemPrompt += "\n\n" + s
	}
	return exec.Run(ctx, actx.Query)
}
