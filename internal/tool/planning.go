package tool

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/kestrel-ai/kestrel/internal/plan"
	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// PlanningTool mutates the request's Plan via an action field, emitting a
// "plan" SSE event after every mutation.
type PlanningTool struct {
	p *plan.Plan
	// set is the callback the "create" action hands each newly built Plan
	// to, so the PlanningAgent's reference follows the tool's own.
	set func(*plan.Plan)
}

// NewPlanningTool builds a PlanningTool bound to the given Plan holder.
// setPlan is called on every "create" action with the newly built
// Plan so the owning PlanningAgent observes it.
func NewPlanningTool(setPlan func(*plan.Plan)) *PlanningTool {
	return &PlanningTool{set: setPlan}
}

// planningArgs is planning's parameter schema source.
type planningArgs struct {
	Action     string   `json:"action" jsonschema:"required,enum=create,enum=update,enum=mark_step,enum=finish,description=Which plan mutation to perform"`
	Stages     []string `json:"stages,omitempty" jsonschema:"description=Stage descriptions, required for create"`
	Steps      []string `json:"steps,omitempty" jsonschema:"description=Optional per-stage detail strings, parallel to stages"`
	StageIndex int      `json:"stageIndex,omitempty" jsonschema:"description=Index of the stage to update or mark"`
	Status     string   `json:"status,omitempty" jsonschema:"enum=completed,enum=blocked,description=Target status for mark_step"`
}

func (t *PlanningTool) Info() Info {
	return Info{
		Name:        "planning",
		Description: "Creates or updates the multi-stage execution plan.",
		Parameters:  generateSchema(&planningArgs{}),
	}
}

func (t *PlanningTool) Execute(ctx context.Context, inv Invocation, argumentsJSON string) protocol.ToolResult {
	var args planningArgs
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return errorResult("planning: invalid arguments: %v", err)
	}

	switch strings.ToLower(args.Action) {
	case "create":
		if len(args.Stages) == 0 {
			return errorResult("planning: create requires at least one stage")
		}
		t.p = plan.New(args.Stages, args.Steps)
		t.set(t.p)
	case "update":
		if t.p == nil {
			return errorResult("planning: no plan to update")
		}
		if err := t.p.StartStage(args.StageIndex); err != nil {
			return errorResult("planning: %v", err)
		}
	case "mark_step":
		if t.p == nil {
			return errorResult("planning: no plan to update")
		}
		var err error
		switch args.Status {
		case "blocked":
			err = t.p.BlockStage(args.StageIndex)
		default:
			err = t.p.CompleteStage(args.StageIndex)
		}
		if err != nil {
			return errorResult("planning: %v", err)
		}
	case "finish":
		// no-op: the PlanningAgent itself observes Plan.Done()
	default:
		return errorResult("planning: unknown action %q", args.Action)
	}

	t.emitPlanEvent(inv)
	return protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "plan updated"}
}

func (t *PlanningTool) emitPlanEvent(inv Invocation) {
	if inv.Printer == nil || t.p == nil {
		return
	}
	snap := t.p.Snapshot()
	statuses := make([]string, len(snap.StepStatus))
	for i, s := range snap.StepStatus {
		statuses[i] = string(s)
	}
	payload, _ := json.Marshal(protocol.PlanPayload{
		Stages:       snap.Stages,
		Steps:        snap.Steps,
		StepStatus:   statuses,
		CurrentIndex: snap.CurrentIndex,
	})
	inv.Printer.Send(protocol.SSEEvent{
		MessageID:   uuid.NewString(),
		MessageType: protocol.MessageTypePlan,
		ResultMap:   payload,
	})
}
