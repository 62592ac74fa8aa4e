package errors

import (
	"fmt"
	"log/slog"
)

// CLIAdapter maps conversion errors to exit codes and user-facing messages.
type CLIAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIAdapter creates a CLI error adapter.
func NewCLIAdapter(verbose bool, logger *slog.Logger) *CLIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the exit code for an error.
func (a *CLIAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	ce, ok := err.(*ConvertError)
	if !ok {
		return 1
	}
	switch ce.Category {
	case CategoryConfig:
		return 2 // invalid usage
	case CategoryInput:
		return 3 // bad or empty input
	case CategoryCRS:
		return 4 // coordinate pipeline setup
	case CategoryExport:
		return 5 // output could not be written
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError renders an error for terminal display. Config and input
// errors show the bare message; everything else is prefixed with its
// category so the phase is visible without --verbose.
func (a *CLIAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	ce, ok := err.(*ConvertError)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return ce.Error()
	}
	switch ce.Category {
	case CategoryConfig, CategoryInput:
		return ce.Message
	default:
		return fmt.Sprintf("%s: %s", ce.Category, ce.Message)
	}
}

// LogError records the error with its structured context.
func (a *CLIAdapter) LogError(err error) {
	ce, ok := err.(*ConvertError)
	if !ok {
		a.logger.Error("conversion failed", "error", err)
		return
	}
	attrs := []any{"category", string(ce.Category), "severity", string(ce.Severity)}
	for k, v := range ce.Context {
		attrs = append(attrs, k, v)
	}
	if ce.Cause != nil {
		attrs = append(attrs, "cause", ce.Cause.Error())
	}
	a.logger.Error(ce.Message, attrs...)
}
