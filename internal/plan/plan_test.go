package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanAdvancesThroughStages(t *testing.T) {
	p := New([]string{"Research X", "Summarize"}, nil)

	require.NoError(t, p.StartStage(0))
	snap := p.Snapshot()
	require.Equal(t, StatusInProgress, snap.StepStatus[0])
	require.Equal(t, StatusNotStarted, snap.StepStatus[1])
	require.Equal(t, 0, snap.CurrentIndex)

	require.NoError(t, p.CompleteStage(0))
	snap = p.Snapshot()
	require.Equal(t, StatusCompleted, snap.StepStatus[0])
	require.Equal(t, 1, snap.CurrentIndex)

	require.NoError(t, p.StartStage(1))
	require.NoError(t, p.CompleteStage(1))
	require.True(t, p.Done())
}

func TestBlockedStageStopsAdvancement(t *testing.T) {
	p := New([]string{"A", "B"}, nil)
	require.NoError(t, p.StartStage(0))
	require.NoError(t, p.BlockStage(0))
	require.True(t, p.Blocked())
	require.False(t, p.Done())
}

func TestCannotBlockCompletedStage(t *testing.T) {
	p := New([]string{"A"}, nil)
	require.NoError(t, p.StartStage(0))
	require.NoError(t, p.CompleteStage(0))
	require.Error(t, p.BlockStage(0))
}

func TestParallelListsStayEqualLength(t *testing.T) {
	p := New([]string{"A", "B", "C"}, []string{"detail-a"})
	snap := p.Snapshot()
	require.Len(t, snap.Stages, 3)
	require.Len(t, snap.Steps, 3)
	require.Len(t, snap.StepStatus, 3)
}
