// Package scheduler implements the Parallelizer: tri-partite
// pending/running/completed state over a graph.IdGraph, handing out
// runnable step ids and accepting completion acknowledgements. Grounded
// on the original Rust implementation's Parallelizer
// (original_source/src/parallelize.rs) and §4.3.
package scheduler

import (
	"sort"

	"forgerun/internal/graph"
)

// Parallelizer tracks which steps are pending, running, or completed
// over a fixed IdGraph. Completed is implicit: nodes \ pending \ running.
type Parallelizer struct {
	g       *graph.IdGraph
	pending map[graph.StepId]struct{}
	running map[graph.StepId]struct{}
}

// FromGraph seeds a Parallelizer with every node of g pending.
func FromGraph(g *graph.IdGraph) *Parallelizer {
	return &Parallelizer{
		g:       g,
		pending: g.Nodes(),
		running: make(map[graph.StepId]struct{}),
	}
}

// IsDone reports whether both pending and running are empty.
func (p *Parallelizer) IsDone() bool {
	return len(p.pending) == 0 && len(p.running) == 0
}

// TotalCount is the number of nodes in the underlying graph.
func (p *Parallelizer) TotalCount() int {
	return len(p.pending) + len(p.running) + p.completedCount()
}

func (p *Parallelizer) completedCount() int {
	total := len(p.g.Nodes())
	return total - len(p.pending) - len(p.running)
}

// PendingCount is the number of steps not yet dispatched.
func (p *Parallelizer) PendingCount() int { return len(p.pending) }

// RunningCount is the number of steps currently dispatched.
func (p *Parallelizer) RunningCount() int { return len(p.running) }

// CompletedCount is the number of steps that have been acknowledged via
// MarkComplete (or skipped as instantly complete).
func (p *Parallelizer) CompletedCount() int { return p.completedCount() }

// RunningIDsSorted returns the currently running step ids in ascending
// order, used for progress reporting.
func (p *Parallelizer) RunningIDsSorted() []graph.StepId {
	out := make([]graph.StepId, 0, len(p.running))
	for id := range p.running {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetTask scans pending in unspecified order, skipping any step with an
// uncompleted dependency, and returns the first eligible id while
// atomically moving it from pending to running. Returns ok=false when no
// step is currently runnable, whether because all remaining dependencies
// are still running or because pending is empty.
func (p *Parallelizer) GetTask() (graph.StepId, bool) {
	for candidate := range p.pending {
		eligible := true
		for dep := range p.g.DependenciesOf(candidate) {
			if _, stillPending := p.pending[dep]; stillPending {
				eligible = false
				break
			}
			if _, stillRunning := p.running[dep]; stillRunning {
				eligible = false
				break
			}
		}
		if !eligible {
			continue
		}
		delete(p.pending, candidate)
		p.running[candidate] = struct{}{}
		return candidate, true
	}
	return 0, false
}

// MarkComplete records that step has finished. Only valid when step is
// currently running.
func (p *Parallelizer) MarkComplete(step graph.StepId) {
	if _, ok := p.running[step]; !ok {
		panic("scheduler: mark_complete called on a step that is not running")
	}
	delete(p.running, step)
}
