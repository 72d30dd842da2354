package pathcheck

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel wrapped by every ValidationError.
var ErrValidation = errors.New("path validation failed")

// Check names the sub-check that rejected a path.
type Check string

const (
	CheckStdio  Check = "stdio"
	CheckExists Check = "exists"
	CheckKind   Check = "kind"
	CheckEmpty  Check = "empty"
	CheckParent Check = "parent"
)

// ValidationError describes which sub-check a path failed.
type ValidationError struct {
	Path   string
	Check  Check
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" || e.Check == CheckStdio {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func fail(path string, check Check, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Check: check, Reason: fmt.Sprintf(format, args...)}
}
