package graph

import (
	"fmt"
	"sort"
)

// IdGraph is a mapping StepId -> set of direct dependencies, derived from
// Steps. Immutable after construction; Focus returns a new graph.
type IdGraph struct {
	deps map[StepId]map[StepId]struct{}
}

// FromSteps builds an IdGraph from a flat step list.
func FromSteps(steps []*Step) *IdGraph {
	g := &IdGraph{deps: make(map[StepId]map[StepId]struct{}, len(steps))}
	for _, s := range steps {
		cp := make(map[StepId]struct{}, len(s.Requires))
		for id := range s.Requires {
			cp[id] = struct{}{}
		}
		g.deps[s.ID] = cp
	}
	return g
}

// Nodes returns the set of StepIds in the graph.
func (g *IdGraph) Nodes() map[StepId]struct{} {
	out := make(map[StepId]struct{}, len(g.deps))
	for id := range g.deps {
		out[id] = struct{}{}
	}
	return out
}

// NodesSorted returns the graph's nodes in ascending order.
func (g *IdGraph) NodesSorted() []StepId {
	out := make([]StepId, 0, len(g.deps))
	for id := range g.deps {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DependenciesOf returns the direct predecessors of s. Querying a StepId
// absent from the graph is a programming error.
func (g *IdGraph) DependenciesOf(s StepId) map[StepId]struct{} {
	deps, ok := g.deps[s]
	if !ok {
		panic(fmt.Sprintf("graph: step %s does not exist", s))
	}
	out := make(map[StepId]struct{}, len(deps))
	for id := range deps {
		out[id] = struct{}{}
	}
	return out
}

// Targets returns the set of nodes with no successor (graph sinks): nodes
// that no other node's requires set references.
func (g *IdGraph) Targets() map[StepId]struct{} {
	hasSuccessor := make(map[StepId]struct{})
	for _, deps := range g.deps {
		for id := range deps {
			hasSuccessor[id] = struct{}{}
		}
	}
	out := make(map[StepId]struct{})
	for id := range g.deps {
		if _, ok := hasSuccessor[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Focus returns a new IdGraph containing exactly s and its transitive
// predecessors. Focusing on a missing StepId is a programming error.
func (g *IdGraph) Focus(s StepId) *IdGraph {
	if _, ok := g.deps[s]; !ok {
		panic(fmt.Sprintf("graph: cannot focus on missing step %s", s))
	}

	keep := make(map[StepId]struct{})
	var visit func(StepId)
	visit = func(id StepId) {
		if _, seen := keep[id]; seen {
			return
		}
		keep[id] = struct{}{}
		for dep := range g.deps[id] {
			visit(dep)
		}
	}
	visit(s)

	out := &IdGraph{deps: make(map[StepId]map[StepId]struct{}, len(keep))}
	for id := range keep {
		cp := make(map[StepId]struct{}, len(g.deps[id]))
		for dep := range g.deps[id] {
			cp[dep] = struct{}{}
		}
		out.deps[id] = cp
	}
	return out
}

// reachableFrom returns the set of nodes reachable from s by following
// dependency edges (s's transitive predecessors, including s itself).
func (g *IdGraph) reachableFrom(s StepId) map[StepId]struct{} {
	seen := make(map[StepId]struct{})
	var visit func(StepId)
	visit = func(id StepId) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		for dep := range g.deps[id] {
			visit(dep)
		}
	}
	visit(s)
	return seen
}

// allPathsTo enumerates every directed path of dependency edges that
// terminates at s, each given youngest-last (s is the final element).
// This mirrors the original Rust implementation's path-enumeration
// transitive reduction (quadratic; see DESIGN.md's internal/graph entry on
// a production-quality O(n*m) alternative).
func (g *IdGraph) allPathsTo(s StepId) [][]StepId {
	var walk func(StepId) [][]StepId
	memo := make(map[StepId][][]StepId)
	walk = func(id StepId) [][]StepId {
		if cached, ok := memo[id]; ok {
			return cached
		}
		reqs := g.deps[id]
		if len(reqs) == 0 {
			paths := [][]StepId{{id}}
			memo[id] = paths
			return paths
		}
		ids := make([]StepId, 0, len(reqs))
		for r := range reqs {
			ids = append(ids, r)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		var paths [][]StepId
		for _, r := range ids {
			for _, p := range walk(r) {
				np := append(append([]StepId(nil), p...), id)
				paths = append(paths, np)
			}
		}
		memo[id] = paths
		return paths
	}
	return walk(s)
}

// Linearize performs in-place transitive-edge reduction: for every step
// with more than one predecessor, drop any predecessor p that also lies
// on a longer path into the step (p is the last element of a path whose
// prefix equals the prefix of some other, longer path). Preserves
// reachability and acyclicity.
func (g *IdGraph) Linearize() {
	for _, id := range g.NodesSorted() {
		deps := g.deps[id]
		if len(deps) <= 1 {
			continue
		}

		paths := g.allPathsTo(id)
		// Drop the terminal step itself; compare predecessor prefixes.
		prefixes := make([][]StepId, len(paths))
		for i, p := range paths {
			prefixes[i] = p[:len(p)-1]
		}

		toDrop := make(map[StepId]struct{})
		for i, p0 := range prefixes {
			if len(p0) == 0 {
				continue
			}
			last := p0[len(p0)-1]
			for j, p1 := range prefixes {
				if i == j {
					continue
				}
				if isPrefixOf(p0, p1) && len(p1) > len(p0) {
					toDrop[last] = struct{}{}
					break
				}
			}
		}

		for d := range toDrop {
			delete(deps, d)
		}
	}
}

func isPrefixOf(prefix, full []StepId) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i, v := range prefix {
		if full[i] != v {
			return false
		}
	}
	return true
}
