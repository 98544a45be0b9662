package command

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"forgerun/internal/envdict"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
}

func TestRunExecutesSubprocessAndCapturesOutput(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	c := &Command{Argv: []string{"sh", "-c", "echo hello"}, Cwd: t.TempDir()}
	res, err := c.Run()
	require.NoError(t, err)
	require.Equal(t, Output, res.Kind)
	require.Equal(t, 0, res.ExitCode)
	require.Contains(t, string(res.Stdout), "hello")
}

func TestRunReportsNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	c := &Command{Argv: []string{"sh", "-c", "exit 3"}, Cwd: t.TempDir()}
	res, err := c.Run()
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.False(t, res.Success())
}

func TestRunFreshSkipsExecutionWhenOutputNewerThanInputs(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "out.txt")

	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(output, []byte("y"), 0o644))
	now := time.Now()
	require.NoError(t, os.Chtimes(input, now, now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(output, now, now))

	c := &Command{
		Argv:       []string{"sh", "-c", "echo should-not-run > " + output},
		Cwd:        dir,
		Inputs:     []string{input},
		OutputPath: output,
	}
	res, err := c.Run()
	require.NoError(t, err)
	require.True(t, res.IsFresh())

	contents, _ := os.ReadFile(output)
	require.Equal(t, "y", string(contents))
}

func TestRunNotFreshWhenInputNewerThanOutput(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "out.txt")

	require.NoError(t, os.WriteFile(output, []byte("old"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(output, past, past))
	require.NoError(t, os.WriteFile(input, []byte("new"), 0o644))

	c := &Command{
		Argv:       []string{"sh", "-c", "echo rebuilt > " + output},
		Cwd:        dir,
		Inputs:     []string{input},
		OutputPath: output,
	}
	res, err := c.Run()
	require.NoError(t, err)
	require.False(t, res.IsFresh())
}

func TestRunNotFreshWhenOutputMissing(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "missing-out.txt")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	c := &Command{
		Argv:       []string{"sh", "-c", "touch " + output},
		Cwd:        dir,
		Inputs:     []string{input},
		OutputPath: output,
	}
	res, err := c.Run()
	require.NoError(t, err)
	require.False(t, res.IsFresh())
}

func TestRunRefreshDisablesFreshnessCheck(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(output, []byte("y"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(output, future, future))

	c := &Command{
		Argv:       []string{"sh", "-c", "echo rerun > " + output},
		Cwd:        dir,
		Inputs:     []string{input},
		OutputPath: output,
		Refresh:    true,
	}
	res, err := c.Run()
	require.NoError(t, err)
	require.False(t, res.IsFresh())
}

func TestRunWritesStdoutAndStderrFiles(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	stdoutFile := filepath.Join(dir, "stdout.log")
	stderrFile := filepath.Join(dir, "stderr.log")

	c := &Command{
		Argv:       []string{"sh", "-c", "echo out; echo err >&2"},
		Cwd:        dir,
		StdoutFile: stdoutFile,
		StderrFile: stderrFile,
	}
	_, err := c.Run()
	require.NoError(t, err)

	out, _ := os.ReadFile(stdoutFile)
	errOut, _ := os.ReadFile(stderrFile)
	require.Contains(t, string(out), "out")
	require.Contains(t, string(errOut), "err")
}

func TestRunAppliesEnvOverlayOverInheritedEnviron(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	os.Setenv("FORGERUN_TEST_VAR", "inherited")
	defer os.Unsetenv("FORGERUN_TEST_VAR")

	env := envdict.New().Set("FORGERUN_TEST_VAR", "overridden")
	c := &Command{
		Argv: []string{"sh", "-c", "echo $FORGERUN_TEST_VAR"},
		Cwd:  t.TempDir(),
		Env:  env,
	}
	res, err := c.Run()
	require.NoError(t, err)
	require.Contains(t, string(res.Stdout), "overridden")
}

func TestRunDirectoryFreshnessUsesMaxContainedFileTime(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	inputDir := filepath.Join(dir, "indir")
	require.NoError(t, os.Mkdir(inputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "a.txt"), []byte("a"), 0o644))
	recent := filepath.Join(inputDir, "recent.txt")
	require.NoError(t, os.WriteFile(recent, []byte("b"), 0o644))

	output := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(output, []byte("y"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(output, past, past))
	require.NoError(t, os.Chtimes(filepath.Join(inputDir, "a.txt"), past, past))
	// recent.txt keeps its natural (now) timestamp, newer than output.

	c := &Command{
		Argv:       []string{"sh", "-c", "echo rebuilt > " + output},
		Cwd:        dir,
		Inputs:     []string{inputDir},
		OutputPath: output,
	}
	res, err := c.Run()
	require.NoError(t, err)
	require.False(t, res.IsFresh(), "recent.txt inside inputDir is newer than output")
}
