package main

import (
	"fmt"
	"os"

	"forgerun/internal/logger"
)

func main() {
	appLogger, err := logger.New(logger.Options{Level: "info", Component: "cli"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	app := &AppContext{Logger: appLogger}

	rootCmd := newRootCmd(app)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
