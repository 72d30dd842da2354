package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes returned by the obfpkg CLI.
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitConfig      = 7
	ExitExternal    = 8
	ExitBuild       = 11
	ExitInterrupted = 130
)

// CLIErrorAdapter turns a command error into a printed message and an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr}
}

// ExitCodeFor returns 0 for nil, the category's code for classified errors
// and ExitFailure otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if classified, ok := AsClassified(err); ok {
		return classified.Category().ExitCode()
	}
	return ExitFailure
}

// FormatError renders err for the terminal. Quiet mode shows only the cause
// of config and validation errors.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return classified.Error()
	case classified.Category().userFixable() && classified.Cause() != nil:
		return classified.Cause().Error()
	case classified.Category().userFixable():
		return classified.Message()
	case classified.Cause() != nil:
		return fmt.Sprintf("%s: %s: %v", classified.Category(), classified.Message(), classified.Cause())
	default:
		return fmt.Sprintf("%s: %s", classified.Category(), classified.Message())
	}
}

// Report prints err, logging it too in verbose mode or when it is
// unclassified, and returns the exit code to use.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if _, ok := AsClassified(err); a.verbose || !ok {
		a.logError(err)
	}
	fmt.Fprintf(a.out, "%s\n", a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError reports err and exits the process. It returns for nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Report(err))
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}

	level := slog.LevelError
	if classified.Category() == CategoryCanceled {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	for k, v := range classified.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	if classified.Cause() != nil {
		attrs = append(attrs, slog.String("error", classified.Cause().Error()))
	}
	a.logger.LogAttrs(context.Background(), level, classified.Message(), attrs...)
}
