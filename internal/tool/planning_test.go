package tool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-ai/kestrel/internal/plan"
	"github.com/kestrel-ai/kestrel/internal/protocol"
)

func TestPlanningToolCreateThenMarkStep(t *testing.T) {
	var captured *plan.Plan
	pt := NewPlanningTool(func(p *plan.Plan) { captured = p })

	result := pt.Execute(t.Context(), Invocation{Printer: fakeSink{}}, `{"action":"create","stages":["gather","write"],"steps":["find sources","draft report"]}`)
	require.Equal(t, protocol.ToolStatusOK, result.Status)
	require.NotNil(t, captured)
	require.Equal(t, 2, captured.Len())

	result = pt.Execute(t.Context(), Invocation{Printer: fakeSink{}}, `{"action":"update","stageIndex":0}`)
	require.Equal(t, protocol.ToolStatusOK, result.Status)

	result = pt.Execute(t.Context(), Invocation{Printer: fakeSink{}}, `{"action":"mark_step","stageIndex":0,"status":"completed"}`)
	require.Equal(t, protocol.ToolStatusOK, result.Status)

	snap := captured.Snapshot()
	require.Equal(t, plan.StatusCompleted, snap.StepStatus[0])
}

func TestPlanningToolRejectsUpdateBeforeCreate(t *testing.T) {
	pt := NewPlanningTool(func(*plan.Plan) {})
	result := pt.Execute(t.Context(), Invocation{}, `{"action":"update","stageIndex":0}`)
	require.Equal(t, protocol.ToolStatusError, result.Status)
}
