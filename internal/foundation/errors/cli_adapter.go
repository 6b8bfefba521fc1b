package errors

import (
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the process exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	c, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch c.Category() {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryAlreadyExists, CategoryConflict:
		return 4
	case CategoryConfig:
		return 7
	case CategoryDaemon, CategoryNetwork:
		return 8
	case CategoryStore:
		return 9
	case CategoryInternal:
		return 10
	case CategoryRuntime:
		return 12
	default:
		return 1
	}
}

// FormatError formats an error for terminal display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	c, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return c.Error()
	}
	switch c.Category() {
	case CategoryConfig, CategoryValidation, CategoryNotFound:
		return c.Message()
	default:
		return fmt.Sprintf("%s: %s", c.Category(), c.Message())
	}
}

// Log records the error with its classification attributes.
func (a *CLIErrorAdapter) Log(err error) {
	if err == nil {
		return
	}
	c, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []any{slog.String("category", string(c.Category()))}
	for k, v := range c.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	if c.Cause() != nil {
		attrs = append(attrs, slog.String("cause", c.Cause().Error()))
	}
	if c.Severity() == SeverityWarning {
		a.logger.Warn(c.Message(), attrs...)
		return
	}
	a.logger.Error(c.Message(), attrs...)
}
