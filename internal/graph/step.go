// Package graph holds the identity and data shape of a single unit of
// work (Step) plus the dependency graph (IdGraph) built from Steps.
package graph

import (
	"fmt"
	"sort"

	"forgerun/internal/envdict"
)

// StepId is an opaque, monotonically assigned, totally ordered identifier.
// Never reused within one run.
type StepId uint64

// String renders the id for display and DOT node naming.
func (id StepId) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// StepIdSource yields strictly increasing StepIds starting at 0.
type StepIdSource struct {
	next uint64
}

// Take returns the next unused StepId.
func (s *StepIdSource) Take() StepId {
	id := StepId(s.next)
	s.next++
	return id
}

// PayloadKind discriminates the StepPayload variants.
type PayloadKind int

const (
	// PayloadNone marks a pure synchronization node with no work to do.
	PayloadNone PayloadKind = iota
	PayloadCmd
	PayloadExpr
	PayloadAssert
)

// Cmd describes a subprocess invocation.
type Cmd struct {
	Argv       []string
	Inputs     []string
	Output     string
	Cwd        string
	StdoutFile string
	StderrFile string
	Env        envdict.EnvDict
	// Freshvar is the cfg key a downstream step may read the freshness
	// flag from, after this step runs.
	Freshvar string
}

// Expr binds Name to Value in the shared configuration map.
type Expr struct {
	Name  string
	Value interface{}
}

// Assert fails the run if Predicate is false.
type Assert struct {
	Predicate bool
	Message   string
}

// StepPayload is the resolved, concrete work a Step carries. Exactly one
// of Cmd, Expr, Assert is populated, selected by Kind; Kind ==
// PayloadNone means a synchronization node.
type StepPayload struct {
	Kind   PayloadKind
	Cmd    *Cmd
	Expr   *Expr
	Assert *Assert
}

// Step is immutable after graph construction except for Requires, which is
// finalized once during building.
type Step struct {
	ID      StepId
	Name    string
	Requires map[StepId]struct{}

	// TargetName is set when this step is addressable as a user target:
	// the terminal step of a top-level definition (for a definition whose
	// composition is an unordered set, its collect step). Steps of nested
	// compositions, including nested collect steps, leave it empty.
	TargetName string

	// Payload is nil for a pure synchronization node. Producer, when set,
	// is resolved against the cfg map at execution time until it yields a
	// concrete Payload (Cmd/Expr/Assert); graph-build time only records
	// the pre-expansion atom.
	Payload  *StepPayload
	Producer PayloadProducer

	// Condition, when non-nil, is evaluated against cfg at dispatch time;
	// false skips the step (treated as instantly complete).
	Condition ConditionFunc

	// Note is an optional user-visible annotation; the builder also folds
	// it into Name, which is what DOT labels and progress output show.
	Note string
}

// PayloadProducer resolves a deferred payload value against the shared
// configuration map. It may itself return another PayloadProducer;
// resolution repeats until a concrete *StepPayload is produced.
type PayloadProducer func(cfg map[string]interface{}) (*StepPayload, PayloadProducer, error)

// ConditionFunc evaluates a step's skip condition against cfg.
type ConditionFunc func(cfg map[string]interface{}) (bool, error)

// RequiresSorted returns the dependency set as a sorted slice, useful for
// deterministic iteration (tests, DOT rendering).
func (s *Step) RequiresSorted() []StepId {
	out := make([]StepId, 0, len(s.Requires))
	for id := range s.Requires {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddRequires records a direct predecessor.
func (s *Step) AddRequires(id StepId) {
	if s.Requires == nil {
		s.Requires = make(map[StepId]struct{})
	}
	s.Requires[id] = struct{}{}
}
