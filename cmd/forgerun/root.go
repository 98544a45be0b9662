package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "forgerun [target]",
		Short:         "forgerun builds a declared target and its dependencies in parallel",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			return runBuild(cmd, app, flags, target)
		},
	}

	cmd.Flags().StringVarP(&flags.directory, "directory", "d", "", "root directory for relative command paths (defaults to the descriptor file's directory)")
	cmd.Flags().StringVarP(&flags.config, "config", "c", "project.yaml", "path to the project descriptor file")
	cmd.Flags().IntVarP(&flags.threads, "threads", "p", 0, "number of worker goroutines (defaults to the logical CPU count)")
	cmd.Flags().BoolVarP(&flags.refresh, "refresh", "r", false, "ignore the freshness check and rerun every command step")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress the progress display")
	cmd.Flags().BoolVarP(&flags.transparent, "transparent", "t", false, "tee each step's stdout/stderr to the console as it completes")
	cmd.Flags().StringVar(&flags.planDot, "plan-dot", "", "write the pre-run dependency graph as graphviz DOT to this path")
	cmd.Flags().StringVar(&flags.statsDot, "stats-dot", "", "write the post-run annotated dependency graph as graphviz DOT to this path")

	cmd.AddCommand(newVersionCmd())

	return cmd
}
