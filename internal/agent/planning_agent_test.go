package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/plan"
	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/tool"
)

func createPlanArgs(t *testing.T, stages ...string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"action": "create", "stages": stages})
	require.NoError(t, err)
	return string(b)
}

func TestPlanningAgentTwoStages(t *testing.T) {
	provider := &scriptedProvider{
		askTool: []llm.AskToolResult{
			{
				ToolCalls: []protocol.ToolCall{
					{ID: "p1", Name: "planning", Arguments: createPlanArgs(t, "stage A", "stage B")},
				},
				StopReason: llm.StopReasonToolCalls,
			},
			{AssistantText: "stage A done", StopReason: llm.StopReasonStop},
			{AssistantText: "stage B done", StopReason: llm.StopReasonStop},
		},
	}

	fullTools := tool.NewCollection()
	fullTools.Register(echoTool{name: "search", result: protocol.ToolResult{Status: protocol.ToolStatusOK, Content: "ok"}})

	pa := NewPlanningAgent(memory.New(), provider, fullTools, nil, "do A then B", false)

	// The stage executor's advertised tools must exclude "planning" so a
	// delegated stage can never recursively try to replan.
	for _, info := range pa.executorTools.Infos() {
		require.NotEqual(t, "planning", info.Name)
	}
	_, hasPlanning := pa.executorTools.Get("planning")
	require.False(t, hasPlanning)
	_, hasSearch := pa.executorTools.Get("search")
	require.True(t, hasSearch)

	out, err := pa.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, "stage A done\n\nstage B done", out)

	require.NotNil(t, pa.Plan())
	snap := pa.Plan().Snapshot()
	require.Equal(t, []string{"stage A", "stage B"}, snap.Stages)
	require.Equal(t, plan.StatusCompleted, snap.StepStatus[0])
	require.Equal(t, plan.StatusCompleted, snap.StepStatus[1])
}

func TestPlanningAgentBlocksOnStageFailure(t *testing.T) {
	// The stage executor's DuplicateThreshold defaults to 2: it takes two
	// consecutive failing think() calls before the executor itself gives up
	// and reports an error back to the PlanningAgent.
	provider := &scriptedProvider{
		askTool: []llm.AskToolResult{
			{
				ToolCalls: []protocol.ToolCall{
					{ID: "p1", Name: "planning", Arguments: createPlanArgs(t, "stage A")},
				},
				StopReason: llm.StopReasonToolCalls,
			},
			{}, {},
		},
		askToolErr: []error{nil, errFakeTransport, errFakeTransport},
	}

	fullTools := tool.NewCollection()
	pa := NewPlanningAgent(memory.New(), provider, fullTools, nil, "do A", false)

	_, err := pa.Run(t.Context())
	require.Error(t, err)
	require.True(t, pa.Plan().Blocked())
}
