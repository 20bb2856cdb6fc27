package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/plan"
	"github.com/kestrel-ai/kestrel/internal/sse"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

// PlanningAgent drives the top-level plan: its first
// iteration gets the LLM to create a Plan via the PlanningTool; every
// iteration after that delegates the next not_started stage to a fresh
// ExecutorAgent sub-run, advancing the Plan on success or blocking it on
// failure.
type PlanningAgent struct {
	Core *AgentCore

	llmClient     llm.Provider
	planOnlyTools *tool.Collection
	executorTools *tool.Collection
	stream        bool

	plan         *plan.Plan
	query        string
	stageResults []string

	// StageSystemPrompt and StageNextStepPrompt override each stage's
	// ExecutorAgent defaults when set (config.PromptsConfig.ExecutorSystem /
	// ExecutorNextStep).
	StageSystemPrompt   string
	StageNextStepPrompt string
}

// NewPlanningAgent builds a PlanningAgent. It registers its own
// PlanningTool instance (bound to its setPlan callback) into fullTools,
// replacing any previously-registered "planning" tool; stage delegation
// then strips that tool from the set handed to each ExecutorAgent sub-run
// so a stage can't recursively try to replan.
func NewPlanningAgent(mem *memory.Memory, llmClient llm.Provider, fullTools *tool.Collection, printer *sse.Printer, query string, stream bool) *PlanningAgent {
	p := &PlanningAgent{llmClient: llmClient, stream: stream, query: query}

	planningTool := tool.NewPlanningTool(p.setPlan)
	fullTools.Register(planningTool)

	planOnly := tool.NewCollection()
	planOnly.Register(planningTool)
	p.planOnlyTools = planOnly
	p.executorTools = withoutTool(fullTools, "planning")

	core := NewCore("planner", "top-level plan driver", DefaultPlanningSystemPrompt, mem, llmClient, planOnly, printer)
	core.NextStepPrompt = DefaultPlanningNextStepPrompt
	p.Core = core

	return p
}

// Run drives the planning/delegation loop to completion and returns the
// joined text of every completed stage's result.
func (p *PlanningAgent) Run(ctx context.Context) (string, error) {
	return RunLoop(ctx, p.Core, p, p.query)
}

// Plan exposes the underlying Plan once created, for tests and for the
// orchestrator's final summary hand-off.
func (p *PlanningAgent) Plan() *plan.Plan { return p.plan }

// Step implements Stepper: create the plan on the first call, then drive
// one stage to completion (or failure) per subsequent call.
func (p *PlanningAgent) Step(ctx context.Context, core *AgentCore) Outcome {
	if p.plan == nil {
		return p.createPlan(ctx)
	}
	if p.plan.Blocked() {
		return Failed(fmt.Errorf("planning: a stage is blocked, stopping"))
	}
	if p.plan.Done() {
		return Outcome{Kind: OutcomeLimit, Text: strings.Join(p.stageResults, "\n\n")}
	}
	return p.runNextStage(ctx)
}

func (p *PlanningAgent) createPlan(ctx context.Context) Outcome {
	react := NewReActAgent(&AgentCore{
		Name:         p.Core.Name,
		SystemPrompt: p.Core.SystemPrompt,
		Memory:       p.Core.Memory,
		LLM:          p.Core.LLM,
		Tools:        p.planOnlyTools,
		Printer:      p.Core.Printer,
		MessageID:    p.Core.MessageID,
	}, p.stream)

	toolCalls, thought, err := react.think(ctx)
	if err != nil {
		return Failed(err)
	}
	if thought != "" {
		// The model's reasoning alongside its planning-tool call is the
		// plan thought the client renders above the plan itself.
		sendPlanThoughtEvent(p.Core.Printer, p.Core.MessageID, thought, true)
	}
	if len(toolCalls) == 0 {
		return Failed(fmt.Errorf("planning: model did not call the planning tool to create a plan"))
	}
	react.act(ctx, toolCalls)

	if p.plan == nil {
		// react.act invoked the PlanningTool, which calls our setPlan
		// callback synchronously; if it still didn't fire, the model's
		// first call used an action other than "create".
		return Failed(fmt.Errorf("planning: first planning-tool call did not create a plan"))
	}
	return OK("plan created")
}

func (p *PlanningAgent) setPlan(pl *plan.Plan) { p.plan = pl }

func (p *PlanningAgent) runNextStage(ctx context.Context) Outcome {
	idx := p.plan.NextNotStarted()
	if idx == -1 {
		return Outcome{Kind: OutcomeLimit, Text: strings.Join(p.stageResults, "\n\n")}
	}
	if err := p.plan.StartStage(idx); err != nil {
		return Failed(err)
	}
	p.emitPlanEvent()

	stageID := strconv.Itoa(idx)
	sendTaskEvent(p.Core.Printer, stageID, "", p.plan.StageInstruction(idx))

	stageMem := memory.New()
	executor := NewExecutorAgent(fmt.Sprintf("stage-%d", idx), stageMem, p.llmClient, p.executorTools, p.Core.Printer, p.stream)
	executor.Core().WithMetrics(p.Core.Metrics)
	executor.Core().MaxSteps = p.Core.MaxSteps
	executor.Core().DuplicateThreshold = p.Core.DuplicateThreshold
	if p.StageSystemPrompt != "" {
		executor.Core().SystemPrompt = p.StageSystemPrompt
	}
	if p.StageNextStepPrompt != "" {
		executor.Core().NextStepPrompt = p.StageNextStepPrompt
	}

	result, err := executor.Run(ctx, p.plan.StageInstruction(idx))
	if err != nil {
		_ = p.plan.BlockStage(idx)
		p.emitPlanEvent()
		return Failed(fmt.Errorf("planning: stage %d failed: %w", idx, err))
	}

	if cerr := p.plan.CompleteStage(idx); cerr != nil {
		return Failed(cerr)
	}
	p.emitPlanEvent()
	p.stageResults = append(p.stageResults, result)
	p.Core.Memory.ClearToolContext()

	return OK(result)
}

// emitPlanEvent sends a "plan" event reflecting the plan's current
// snapshot, for stage transitions the PlanningAgent drives directly
// (StartStage/CompleteStage/BlockStage) rather than through a PlanningTool
// call — the PlanningTool emits its own event for LLM-initiated mutations.
func (p *PlanningAgent) emitPlanEvent() {
	if p.Core.Printer == nil || p.plan == nil {
		return
	}
	snap := p.plan.Snapshot()
	statuses := make([]string, len(snap.StepStatus))
	for i, s := range snap.StepStatus {
		statuses[i] = string(s)
	}
	sendPlanEvent(p.Core.Printer, snap.Stages, snap.Steps, statuses, snap.CurrentIndex)
}

// withoutTool returns a new Collection holding every tool from src except
// the one named exclude — used to keep the PlanningTool out of a delegated
// ExecutorAgent sub-run's advertised tool set.
func withoutTool(src *tool.Collection, exclude string) *tool.Collection {
	out := tool.NewCollection()
	for _, info := range src.Infos() {
		if info.Name == exclude {
			continue
		}
		if t, ok := src.Get(info.Name); ok {
			out.Register(t)
		}
	}
	return out
}
