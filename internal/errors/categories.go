// Package errors classifies obfpkg failures by category so the CLI can pick
// an exit code and decide how much detail to print.
package errors

// ErrorCategory is the broad class of a failure.
type ErrorCategory string

const (
	// CategoryConfig and CategoryValidation are problems the user can fix
	// from the command line or the config file.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// CategoryExternal is a failing stubgen, obfuscator or assembler.
	CategoryExternal ErrorCategory = "external"

	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryEventStore ErrorCategory = "eventstore"
	CategoryCanceled   ErrorCategory = "canceled"
)

// ExitCode returns the process exit code for the category.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return ExitUsage
	case CategoryConfig:
		return ExitConfig
	case CategoryExternal:
		return ExitExternal
	case CategoryBuild, CategoryFileSystem, CategoryEventStore:
		return ExitBuild
	case CategoryCanceled:
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// userFixable reports whether the cause alone makes a useful message.
func (c ErrorCategory) userFixable() bool {
	return c == CategoryConfig || c == CategoryValidation
}

// ErrorContext carries structured fields logged with the error.
type ErrorContext map[string]any
