// Package render produces the graphviz DOT representation of a run's
// dependency graph described in §4.6. Grounded on the original Rust
// implementation's depgraph::to_dot (original_source/src/depgraph.rs).
package render

import (
	"fmt"
	"sort"
	"strings"

	"forgerun/internal/command"
	"forgerun/internal/executor"
	"forgerun/internal/graph"
)

// Plan renders the dependency graph's structure only, with no timing
// annotations: one box per step, double-bordered when the step is a
// user-addressable target, plus an edge per requires relationship.
// Used for --plan-dot, produced before a run starts.
func Plan(steps []*graph.Step) string {
	return DOT(steps, nil)
}

// Stats renders the dependency graph annotated with each step's
// recorded elapsed time and freshness, once a run has produced
// executor.Statistics. Used for --stats-dot.
func Stats(steps []*graph.Step, stats *executor.Statistics) string {
	if stats == nil {
		return Plan(steps)
	}
	return DOT(steps, stats.Commands)
}

// DOT renders steps as a graphviz digraph. When results is non-nil,
// each step's box label includes its elapsed time and a "[fresh]"
// marker, matched by step id; a step with no entry in results renders
// without the time line.
func DOT(steps []*graph.Step, results map[graph.StepId]command.Result) string {
	sorted := make([]*graph.Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	b.WriteString("digraph D {\n")

	for _, s := range sorted {
		peripheries := 1
		if s.TargetName != "" {
			peripheries = 2
		}

		timing := ""
		if results != nil {
			if res, ok := results[s.ID]; ok {
				freshTag := ""
				if res.IsFresh() {
					freshTag = " [fresh]"
				}
				timing = fmt.Sprintf("\\n%s%s", res.Elapsed, freshTag)
			}
		}

		fmt.Fprintf(&b, "node%s [shape=box,peripheries=%d,label=\"%s: %s%s\"]\n",
			s.ID, peripheries, s.ID, escapeLabel(s.Name), timing)
	}

	for _, s := range sorted {
		for _, dep := range s.RequiresSorted() {
			fmt.Fprintf(&b, "node%s -> node%s\n", dep, s.ID)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
