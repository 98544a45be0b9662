package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
default_target: build
definitions:
  - name: build
    kind: seq
    members:
      - name: compile
        kind: atom
        argv: ["echo", "compiling"]
        freshvar: compile_fresh
      - name: link
        kind: atom
        argv: ["echo", "linking"]
        requires: ["prep"]
  - name: prep
    kind: atom
    argv: ["echo", "prep"]
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadYAMLSourceParsesDefinitions(t *testing.T) {
	t.Parallel()

	src, err := LoadYAMLSource(writeSample(t))
	require.NoError(t, err)

	targets, err := src.ListTargets()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"build", "prep"}, targets)
	require.Equal(t, "build", src.DefaultTarget())
}

func TestYAMLSourceGetReturnsNamedDefinition(t *testing.T) {
	t.Parallel()

	src, err := LoadYAMLSource(writeSample(t))
	require.NoError(t, err)

	d, err := src.Get("build")
	require.NoError(t, err)
	require.Equal(t, "seq", d.Kind)
	require.Len(t, d.Members, 2)
}

func TestYAMLSourceGetUnknownNameErrors(t *testing.T) {
	t.Parallel()

	src, err := LoadYAMLSource(writeSample(t))
	require.NoError(t, err)

	_, err = src.Get("does-not-exist")
	require.Error(t, err)
}

func TestYAMLSourceResolveReadsFromCfg(t *testing.T) {
	t.Parallel()

	src, err := LoadYAMLSource(writeSample(t))
	require.NoError(t, err)

	cfg := map[string]interface{}{"threads": 4}
	v, err := src.Resolve("cfg:threads", cfg)
	require.NoError(t, err)
	require.Equal(t, 4, v)

	v, err = src.Resolve("literal-value", cfg)
	require.NoError(t, err)
	require.Equal(t, "literal-value", v)
}

func TestYAMLSourceResolveMissingCfgKeyErrors(t *testing.T) {
	t.Parallel()

	src, err := LoadYAMLSource(writeSample(t))
	require.NoError(t, err)

	_, err = src.Resolve("cfg:missing", map[string]interface{}{})
	require.Error(t, err)
}

func TestLoadYAMLSourceRejectsInvalidStepID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
definitions:
  - name: "1bad"
    kind: atom
    argv: ["true"]
`), 0o644))

	_, err := LoadYAMLSource(path)
	require.Error(t, err)
}

func TestToDefinitionsConvertsNestedSeq(t *testing.T) {
	t.Parallel()

	src, err := LoadYAMLSource(writeSample(t))
	require.NoError(t, err)

	defs, err := ToDefinitions(src.Definitions())
	require.NoError(t, err)
	require.Len(t, defs, 2)
}
