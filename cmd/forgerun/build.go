package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"forgerun/internal/builder"
	"forgerun/internal/descriptor"
	"forgerun/internal/executor"
	"forgerun/internal/progress"
	"forgerun/internal/render"
	pkgerrors "forgerun/pkg/errors"
)

// runBuild loads the project descriptor, builds the dependency graph,
// and runs the executor against the resolved target. Target resolution
// order (Decided Open Question, supplementing §6): the CLI positional
// argument, then the descriptor's default_target, else a validation
// error.
func runBuild(cmd *cobra.Command, app *AppContext, flags *rootFlags, target string) error {
	if err := validateRootFlags(flags); err != nil {
		return err
	}

	src, err := descriptor.LoadYAMLSource(flags.config)
	if err != nil {
		return err
	}

	if target == "" {
		target = src.DefaultTarget()
	}
	if target == "" {
		return pkgerrors.NewValidationError("target", "no target given and descriptor has no default_target", nil)
	}

	defs, err := descriptor.ToDefinitions(src.Definitions())
	if err != nil {
		return err
	}

	result, err := builder.Build(defs)
	if err != nil {
		return err
	}

	if flags.planDot != "" {
		if err := os.WriteFile(flags.planDot, []byte(render.Plan(result.Steps)), 0o644); err != nil {
			return fmt.Errorf("write plan-dot: %w", err)
		}
	}

	cfg := map[string]interface{}{
		"root_dir": flags.directory,
		"threads":  flags.threads,
	}

	opts := executor.Options{
		RootDir:     flags.directory,
		Threads:     flags.threads,
		Refresh:     flags.refresh,
		Quiet:       flags.quiet,
		Transparent: flags.transparent,
		Target:      target,
	}

	var reporter *progress.Reporter
	var progressFn executor.Progress
	if !flags.quiet {
		reporter = progress.NewReporter()
		progressFn = reporter.Report
	}

	stats, runErr := executor.Run(result.Steps, cfg, opts, progressFn, app.Logger)

	if reporter != nil {
		reporter.Close()
	}

	if flags.statsDot != "" {
		if err := os.WriteFile(flags.statsDot, []byte(render.Stats(result.Steps, stats)), 0o644); err != nil {
			return fmt.Errorf("write stats-dot: %w", err)
		}
	}

	return runErr
}
