package descriptor

import (
	"forgerun/internal/builder"
	"forgerun/internal/envdict"
	"forgerun/internal/graph"
	pkgerrors "forgerun/pkg/errors"
)

// ToDefinitions converts every top-level descriptor into a
// builder.Definition, ready for builder.Build.
func ToDefinitions(defs []StepDescriptor) ([]builder.Definition, error) {
	out := make([]builder.Definition, 0, len(defs))
	for _, d := range defs {
		comp, err := toComposition(d)
		if err != nil {
			return nil, err
		}
		out = append(out, builder.Definition{Name: d.Name, Composition: comp})
	}
	return out, nil
}

func toComposition(d StepDescriptor) (builder.Composition, error) {
	switch d.Kind {
	case "atom":
		payload, err := atomPayload(d)
		if err != nil {
			return builder.Composition{}, err
		}
		return builder.Composition{
			Kind:            builder.Atom,
			Payload:         payload,
			Note:            d.Note,
			LogicalRequires: d.LogicalRequires,
		}, nil
	case "seq":
		members, err := toMembers(d.Members)
		if err != nil {
			return builder.Composition{}, err
		}
		return builder.Composition{Kind: builder.Seq, Members: members, Note: d.Note, LogicalRequires: d.LogicalRequires}, nil
	case "par":
		members, err := toMembers(d.Members)
		if err != nil {
			return builder.Composition{}, err
		}
		return builder.Composition{Kind: builder.Par, Members: members, Note: d.Note, LogicalRequires: d.LogicalRequires}, nil
	default:
		return builder.Composition{}, pkgerrors.NewValidationError("kind", "unknown composition kind "+d.Kind, nil)
	}
}

func toMembers(descs []StepDescriptor) ([]builder.Composition, error) {
	out := make([]builder.Composition, 0, len(descs))
	for _, d := range descs {
		c, err := toComposition(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func atomPayload(d StepDescriptor) (*graph.StepPayload, error) {
	switch {
	case d.ExprName != "":
		return &graph.StepPayload{
			Kind: graph.PayloadExpr,
			Expr: &graph.Expr{Name: d.ExprName, Value: d.ExprValue},
		}, nil
	case d.AssertMessage != "":
		return &graph.StepPayload{
			Kind:   graph.PayloadAssert,
			Assert: &graph.Assert{Predicate: d.AssertPredicate, Message: d.AssertMessage},
		}, nil
	case len(d.Argv) > 0:
		env := envdict.New()
		for k, v := range d.Env {
			env.Set(k, v)
		}
		return &graph.StepPayload{
			Kind: graph.PayloadCmd,
			Cmd: &graph.Cmd{
				Argv:       d.Argv,
				Inputs:     d.Inputs,
				Output:     d.Output,
				Cwd:        d.Cwd,
				StdoutFile: d.StdoutFile,
				StderrFile: d.StderrFile,
				Env:        env,
				Freshvar:   d.Freshvar,
			},
		}, nil
	default:
		return &graph.StepPayload{Kind: graph.PayloadNone}, nil
	}
}
