package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

type rootFlags struct {
	directory   string
	config      string
	threads     int
	refresh     bool
	quiet       bool
	transparent bool
	planDot     string
	statsDot    string
}

func validateRootFlags(flags *rootFlags) error {
	abs, err := filepath.Abs(flags.config)
	if err != nil {
		return fmt.Errorf("resolve descriptor path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("descriptor file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("descriptor path %s is a directory", abs)
	}
	flags.config = abs

	if flags.directory == "" {
		flags.directory = filepath.Dir(abs)
	}
	dirAbs, err := filepath.Abs(flags.directory)
	if err != nil {
		return fmt.Errorf("resolve root directory: %w", err)
	}
	flags.directory = dirAbs

	if flags.threads < 1 {
		flags.threads = runtime.NumCPU()
	}

	return nil
}
