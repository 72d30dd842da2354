package stubs

import (
	"errors"
	"fmt"
)

// ErrBuildPathNotDir is returned by New when the build path is missing or
// not a directory.
var ErrBuildPathNotDir = errors.New("build path is not a directory")

// RenameExhaustedError reports that the generated package directory could
// not be moved to its stubs name within the allowed attempts.
type RenameExhaustedError struct {
	From     string
	To       string
	Attempts int
	Err      error // last rename error
}

func (e *RenameExhaustedError) Error() string {
	return fmt.Sprintf("rename %s to %s failed after %d attempts: %v", e.From, e.To, e.Attempts, e.Err)
}

func (e *RenameExhaustedError) Unwrap() error { return e.Err }
