// Package builder turns a nested description (leaf / ordered-sequence /
// unordered-set, arbitrarily composed) into a flat list of graph.Step
// values with Requires edges, synthesizing synchronization nodes for
// unordered sets and a shared start node. Grounded on the original Rust
// implementation's create_steps (original_source/src/config.rs) and §4.1.
package builder

import (
	"fmt"
	"sort"

	"forgerun/internal/graph"
	pkgerrors "forgerun/pkg/errors"
)

// CompositionKind discriminates the three compositional forms.
type CompositionKind int

const (
	// Atom is one concrete step (Cmd/Expr/Assert), possibly deferred.
	Atom CompositionKind = iota
	// Seq is an ordered sequence: each sub-composition must complete
	// before the next begins.
	Seq
	// Par is an unordered set: members may run concurrently; a
	// synthesized collect step terminates the set.
	Par
)

// Composition is the tagged variant Composition ::= Atom(payload) |
// Seq([Composition]) | Par({Composition}), per §9's design note.
type Composition struct {
	Kind CompositionKind

	// Populated when Kind == Atom.
	Payload   *graph.StepPayload
	Producer  graph.PayloadProducer
	Condition graph.ConditionFunc
	Note      string
	// Logical (symbolic) dependencies declared on the atom: names of
	// other top-level Definitions, resolved to their terminal StepIds in
	// the builder's post-pass (§4.1 step 4).
	LogicalRequires []string

	// Populated when Kind == Seq or Kind == Par.
	Members []Composition
}

// Definition is one top-level entry: a name and its composition.
type Definition struct {
	Name        string
	Composition Composition
}

// Result is the output of Build: the flat step list plus a name ->
// terminal-StepId index used to resolve logical (cross-definition)
// dependencies and CLI target lookups.
type Result struct {
	Steps     []*graph.Step
	TargetIDs map[string]graph.StepId
	StartID   graph.StepId
}

// builder holds the mutable state threaded through one Build call: the id
// source, the flat step list under construction, and the symbolic
// dependency references recorded on atoms for the post-pass.
type builder struct {
	ids     graph.StepIdSource
	steps   []*graph.Step
	pending map[*graph.Step][]string
}

// Build expands a sequence of top-level Definitions into a flat Step
// list. Contract per §4.1:
//  1. Emit a start step with empty Requires, id = first.
//  2. Expand each top-level definition in declaration order.
//  3. Mark the terminal step of each top-level definition with
//     TargetName = definition name.
//  4. Resolve logical (symbolic) dependencies to terminal StepIds.
func Build(defs []Definition) (*Result, error) {
	b := &builder{pending: make(map[*graph.Step][]string)}

	startID := b.ids.Take()
	start := &graph.Step{ID: startID, Name: "start", Requires: make(map[graph.StepId]struct{})}
	b.steps = append(b.steps, start)

	targetIDs := make(map[string]graph.StepId, len(defs))

	for _, def := range defs {
		if _, dup := targetIDs[def.Name]; dup {
			return nil, pkgerrors.NewValidationError(def.Name, fmt.Sprintf("duplicate target name %q", def.Name), nil)
		}

		expanded, err := b.expand(def.Composition, startID, def.Name)
		if err != nil {
			return nil, err
		}
		if len(expanded) == 0 {
			return nil, pkgerrors.NewValidationError(def.Name, "definition expanded to zero steps", nil)
		}
		terminal := expanded[len(expanded)-1]
		terminal.TargetName = def.Name
		targetIDs[def.Name] = terminal.ID
	}

	if err := b.resolveLogicalDeps(targetIDs); err != nil {
		return nil, err
	}

	return &Result{Steps: b.steps, TargetIDs: targetIDs, StartID: startID}, nil
}

// expand recursively expands a Composition. joinID is the incoming
// dependency every freshly created step (or the first member of a Seq /
// every member of a Par) must require. Returns the steps created, in
// build order; by convention the caller treats the LAST element as "the"
// terminal id of this sub-composition (Decided Open Question 1 in
// SPEC_FULL.md: always the single last-built id, which for a nested Par
// is that Par's own collect step, so nesting composes without special
// casing).
func (b *builder) expand(c Composition, joinID graph.StepId, defName string) ([]*graph.Step, error) {
	switch c.Kind {
	case Atom:
		s := &graph.Step{
			ID:        b.ids.Take(),
			Name:      atomName(defName, c),
			Payload:   c.Payload,
			Producer:  c.Producer,
			Condition: c.Condition,
			Note:      c.Note,
			Requires:  map[graph.StepId]struct{}{joinID: {}},
		}
		b.steps = append(b.steps, s)
		if len(c.LogicalRequires) > 0 {
			pending := make([]string, len(c.LogicalRequires))
			copy(pending, c.LogicalRequires)
			b.pending[s] = pending
		}
		return []*graph.Step{s}, nil

	case Seq:
		var produced []*graph.Step
		next := joinID
		for _, member := range c.Members {
			sub, err := b.expand(member, next, defName)
			if err != nil {
				return nil, err
			}
			if len(sub) == 0 {
				return nil, pkgerrors.NewValidationError(defName, "sequence member expanded to zero steps", nil)
			}
			next = sub[len(sub)-1].ID
			produced = append(produced, sub...)
		}
		return produced, nil

	case Par:
		var produced []*graph.Step
		collect := &graph.Step{
			Name:     fmt.Sprintf("collect %s", defName),
			Requires: make(map[graph.StepId]struct{}),
		}
		for _, member := range c.Members {
			sub, err := b.expand(member, joinID, defName)
			if err != nil {
				return nil, err
			}
			if len(sub) == 0 {
				return nil, pkgerrors.NewValidationError(defName, "set member expanded to zero steps", nil)
			}
			// Decided Open Question 1: depend on the single last-built
			// id of each member, not all of its terminal steps.
			collect.AddRequires(sub[len(sub)-1].ID)
			produced = append(produced, sub...)
		}
		collect.ID = b.ids.Take()
		b.steps = append(b.steps, collect)
		produced = append(produced, collect)
		return produced, nil

	default:
		return nil, fmt.Errorf("builder: unknown composition kind %d", c.Kind)
	}
}

func (b *builder) resolveLogicalDeps(targetIDs map[string]graph.StepId) error {
	for s, names := range b.pending {
		for _, name := range names {
			target, found := targetIDs[name]
			if !found {
				return pkgerrors.NewValidationError(s.Name, fmt.Sprintf("unresolvable dependency reference %q", name), nil)
			}
			s.AddRequires(target)
		}
	}
	return nil
}

func atomName(defName string, c Composition) string {
	if c.Note != "" {
		return fmt.Sprintf("%s: %s", defName, c.Note)
	}
	return defName
}

// SortedDefinitionNames returns the definitions' names in ascending order.
func SortedDefinitionNames(defs []Definition) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
