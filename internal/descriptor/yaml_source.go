package descriptor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"forgerun/internal/validate"
	pkgerrors "forgerun/pkg/errors"
)

// YAMLSource loads a ProjectDescriptor from a single YAML file and
// serves it as a Source. Deferred values are written as "cfg:<key>"
// strings and resolved by looking the key up in the run's cfg map.
type YAMLSource struct {
	path string
	proj ProjectDescriptor
}

// LoadYAMLSource reads and validates the descriptor file at path.
func LoadYAMLSource(path string) (*YAMLSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.NewDescriptorError(path, err)
	}

	var proj ProjectDescriptor
	if err := yaml.Unmarshal(data, &proj); err != nil {
		return nil, pkgerrors.NewParseError(path, 0, err)
	}

	for i := range proj.Definitions {
		if err := validateDescriptor(&proj.Definitions[i]); err != nil {
			return nil, err
		}
	}

	return &YAMLSource{path: path, proj: proj}, nil
}

func validateDescriptor(d *StepDescriptor) error {
	if err := validate.Struct(d); err != nil {
		return pkgerrors.NewValidationError(d.Name, err.Error(), err)
	}
	for i := range d.Members {
		if err := validateDescriptor(&d.Members[i]); err != nil {
			return err
		}
	}
	return nil
}

// ListTargets returns every top-level definition's name.
func (s *YAMLSource) ListTargets() ([]string, error) {
	names := make([]string, 0, len(s.proj.Definitions))
	for _, d := range s.proj.Definitions {
		names = append(names, d.Name)
	}
	return names, nil
}

// Get returns the top-level definition named name.
func (s *YAMLSource) Get(name string) (*StepDescriptor, error) {
	for i := range s.proj.Definitions {
		if s.proj.Definitions[i].Name == name {
			return &s.proj.Definitions[i], nil
		}
	}
	return nil, pkgerrors.NewDescriptorError(s.path, fmt.Errorf("no definition named %q", name))
}

// DefaultTarget returns the project's configured default target, or
// the empty string if none is set.
func (s *YAMLSource) DefaultTarget() string {
	return s.proj.DefaultTarget
}

// Resolve looks up a "cfg:<key>" reference in cfg; any other value is
// returned as a literal string.
func (s *YAMLSource) Resolve(value string, cfg map[string]interface{}) (interface{}, error) {
	key, ok := strings.CutPrefix(value, "cfg:")
	if !ok {
		return value, nil
	}
	v, ok := cfg[key]
	if !ok {
		return nil, pkgerrors.NewExecutionError("", fmt.Errorf("cfg key %q is not set", key))
	}
	return v, nil
}

// Definitions returns the raw descriptor list, for callers (such as
// the builder adapter) that need the full tree rather than one
// definition at a time.
func (s *YAMLSource) Definitions() []StepDescriptor {
	return s.proj.Definitions
}
