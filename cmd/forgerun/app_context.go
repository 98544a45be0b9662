package main

import "forgerun/internal/logger"

// AppContext bundles the process-wide collaborators every subcommand
// needs, constructed once in main and threaded through cobra's RunE
// closures.
type AppContext struct {
	Logger *logger.Logger
}
