package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if classified, ok := AsClassified(err); ok {
		switch classified.Category() {
		case CategoryValidation:
			return 2 // Invalid usage
		case CategoryAuth:
			return 5
		case CategoryConfig:
			return 7
		case CategoryUpstream:
			return 8 // External system error
		case CategoryStorage:
			return 11
		case CategoryInternal:
			return 10
		default:
			return 1
		}
	}

	return 1
}

// HandleError prints err for a terminal user and exits with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.verbose {
		a.logger.Error("command failed", slog.String("error", err.Error()))
	}
	msg := err.Error()
	if c, ok := AsClassified(err); ok && !a.verbose {
		msg = c.Message()
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(a.ExitCodeFor(err))
}
