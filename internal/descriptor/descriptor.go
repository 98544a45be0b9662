// Package descriptor defines the declarative step-descriptor shape and
// the DescriptorSource capability (§9's scripting-layer replacement):
// list_targets(), get(name), and resolve(value, cfg) for deferred
// values, with concrete file- and git-backed implementations.
package descriptor

// StepDescriptor is the declarative, file-native shape of one
// composition node: either a leaf (Atom) carrying a Cmd/Expr/Assert
// payload, or an interior node (Seq/Par) carrying Members.
type StepDescriptor struct {
	Name string `yaml:"name" validate:"required,step_id"`
	Kind string `yaml:"kind" validate:"required,composition_kind"`

	// Target is parsed but not read by the conversion to builder
	// definitions: every top-level definition is addressable from the CLI
	// by its Name, and nested descriptors are not addressable.
	Target string `yaml:"target,omitempty"`
	Note   string `yaml:"note,omitempty"`

	// LogicalRequires names sibling top-level definitions that this atom's
	// step must wait on, resolved after every definition has been expanded
	// (builder.Composition.LogicalRequires). The builder acts on it for
	// atom descriptors only; on seq and par descriptors it is ignored.
	LogicalRequires []string `yaml:"requires,omitempty"`

	// Atom payload fields; at most one of Argv/ExprName/AssertMessage is
	// set, selected implicitly by which is non-empty.
	Argv       []string          `yaml:"argv,omitempty"`
	Inputs     []string          `yaml:"inputs,omitempty"`
	Output     string            `yaml:"output,omitempty"`
	Cwd        string            `yaml:"cwd,omitempty"`
	StdoutFile string            `yaml:"stdout_file,omitempty"`
	StderrFile string            `yaml:"stderr_file,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	Freshvar   string            `yaml:"freshvar,omitempty"`

	ExprName  string      `yaml:"expr_name,omitempty"`
	ExprValue interface{} `yaml:"expr_value,omitempty"`

	AssertPredicate bool   `yaml:"assert_predicate,omitempty"`
	AssertMessage   string `yaml:"assert_message,omitempty"`

	// Members holds the nested compositions for Seq/Par descriptors.
	Members []StepDescriptor `yaml:"members,omitempty"`
}

// ProjectDescriptor is the top-level file shape: every target
// definition plus which one to build when the CLI is given no
// positional target (§6's target resolution order).
type ProjectDescriptor struct {
	DefaultTarget string           `yaml:"default_target,omitempty"`
	Definitions   []StepDescriptor `yaml:"definitions" validate:"required,dive"`
}

// Source is the DescriptorSource capability from §9: a pluggable way
// to enumerate and fetch step descriptors, and to resolve a deferred
// value (one written as a reference into the shared cfg map rather
// than a literal) against the run's current configuration.
type Source interface {
	ListTargets() ([]string, error)
	Get(name string) (*StepDescriptor, error)
	Resolve(value string, cfg map[string]interface{}) (interface{}, error)
	DefaultTarget() string
}
