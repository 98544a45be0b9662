package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"forgerun/internal/graph"
)

func linearGraph() *graph.IdGraph {
	steps := []*graph.Step{
		{ID: 0, Requires: map[graph.StepId]struct{}{}},
		{ID: 1, Requires: map[graph.StepId]struct{}{0: {}}},
		{ID: 2, Requires: map[graph.StepId]struct{}{1: {}}},
	}
	return graph.FromSteps(steps)
}

func TestGetTaskOnlyReturnsStepsWithCompletedDeps(t *testing.T) {
	t.Parallel()

	p := FromGraph(linearGraph())

	id, ok := p.GetTask()
	require.True(t, ok)
	require.Equal(t, graph.StepId(0), id)

	_, ok = p.GetTask()
	require.False(t, ok, "step 1 depends on still-running step 0")
}

func TestGetTaskUnblocksAfterMarkComplete(t *testing.T) {
	t.Parallel()

	p := FromGraph(linearGraph())

	id0, _ := p.GetTask()
	p.MarkComplete(id0)

	id1, ok := p.GetTask()
	require.True(t, ok)
	require.Equal(t, graph.StepId(1), id1)
}

func TestMarkCompleteOnNonRunningStepPanics(t *testing.T) {
	t.Parallel()

	p := FromGraph(linearGraph())
	require.Panics(t, func() {
		p.MarkComplete(2)
	})
}

func TestIsDoneAfterAllStepsComplete(t *testing.T) {
	t.Parallel()

	p := FromGraph(linearGraph())
	for !p.IsDone() {
		id, ok := p.GetTask()
		if !ok {
			t.Fatal("deadlocked before completion")
		}
		p.MarkComplete(id)
	}
	require.True(t, p.IsDone())
}

func TestFanOutAllowsConcurrentSiblings(t *testing.T) {
	t.Parallel()

	steps := []*graph.Step{
		{ID: 0, Requires: map[graph.StepId]struct{}{}},
		{ID: 1, Requires: map[graph.StepId]struct{}{0: {}}},
		{ID: 2, Requires: map[graph.StepId]struct{}{0: {}}},
		{ID: 3, Requires: map[graph.StepId]struct{}{0: {}}},
	}
	p := FromGraph(graph.FromSteps(steps))

	root, _ := p.GetTask()
	p.MarkComplete(root)

	var got []graph.StepId
	for {
		id, ok := p.GetTask()
		if !ok {
			break
		}
		got = append(got, id)
	}
	require.ElementsMatch(t, []graph.StepId{1, 2, 3}, got)
	require.Equal(t, 3, p.RunningCount())
}

func TestCountersStayConsistent(t *testing.T) {
	t.Parallel()

	p := FromGraph(linearGraph())
	require.Equal(t, 3, p.TotalCount())
	require.Equal(t, 3, p.PendingCount())

	id, _ := p.GetTask()
	require.Equal(t, 2, p.PendingCount())
	require.Equal(t, 1, p.RunningCount())
	require.Equal(t, 0, p.CompletedCount())

	p.MarkComplete(id)
	require.Equal(t, 1, p.CompletedCount())
}
