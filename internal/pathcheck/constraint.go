package pathcheck

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Stdio is the sentinel argument standing for standard input/output.
const Stdio = "-"

// Presence is the tri-state existence requirement.
type Presence uint8

const (
	// PresenceAny does not care whether the path exists.
	PresenceAny Presence = iota
	// PresenceRequired demands the path exists and matches the kind.
	PresenceRequired
	// PresenceOptional demands a valid parent directory only.
	PresenceOptional
)

// ExistencePolicy constrains whether a path may or must exist.
type ExistencePolicy struct {
	Presence Presence
	// EmptyOrAbsent requires an existing path to be an empty directory.
	// It applies only when Presence is not PresenceRequired.
	EmptyOrAbsent bool
}

// Constraint pairs an existence policy with a kind policy. A nil Kind
// behaves as Any. RejectDash disables the "-" sentinel for kinds that
// would otherwise allow it.
type Constraint struct {
	Existence  ExistencePolicy
	Kind       Kind
	RejectDash bool
}

// Path is a validated, cleaned path value.
type Path string

func (p Path) String() string { return string(p) }

// IsStdio reports whether p is the "-" sentinel.
func (p Path) IsStdio() bool { return string(p) == Stdio }

// ExistingDir is the constraint for a directory that must already exist.
func ExistingDir() Constraint {
	return Constraint{Existence: ExistencePolicy{Presence: PresenceRequired}, Kind: Directory}
}

// EmptyOrAbsentDir is the constraint for an output directory: absent, or
// present and empty, below an existing parent.
func EmptyOrAbsentDir() Constraint {
	return Constraint{Existence: ExistencePolicy{EmptyOrAbsent: true}, Kind: Directory}
}

func (c Constraint) kind() Kind {
	if c.Kind == nil {
		return Any
	}
	return c.Kind
}

// Validate checks raw against the constraint and returns the cleaned path.
func (c Constraint) Validate(raw string) (Path, error) {
	kind := c.kind()

	if raw == Stdio {
		switch {
		case kind == Directory:
			return "", fail(raw, CheckStdio, "standard input/output (-) not allowed as directory path")
		case kind == Symlink:
			return "", fail(raw, CheckStdio, "standard input/output (-) not allowed as symlink path")
		case c.RejectDash:
			return "", fail(raw, CheckStdio, "standard input/output (-) not allowed")
		}
		return Path(raw), nil
	}

	if c.Existence.Presence == PresenceRequired {
		if _, err := os.Stat(raw); err != nil {
			return "", fail(raw, CheckExists, "path does not exist")
		}
		if !kind.Matches(raw) {
			if isNamed(kind) {
				return "", fail(raw, CheckKind, "path is not a %s", kind.Label())
			}
			return "", fail(raw, CheckKind, "path not valid")
		}
		return Path(filepath.Clean(raw)), nil
	}

	if c.Existence.EmptyOrAbsent {
		if err := checkEmptyOrAbsent(raw); err != nil {
			return "", err
		}
	}

	parent := filepath.Dir(filepath.Clean(raw))
	fi, err := os.Stat(parent)
	if err != nil {
		return "", fail(parent, CheckParent, "parent directory does not exist")
	}
	if !fi.IsDir() {
		return "", fail(parent, CheckParent, "parent path is not a directory")
	}
	return Path(filepath.Clean(raw)), nil
}

func checkEmptyOrAbsent(raw string) error {
	fi, err := os.Stat(raw)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fail(raw, CheckEmpty, "path not accessible")
	}
	if !fi.IsDir() {
		return fail(raw, CheckEmpty, "path is not a directory")
	}
	d, err := os.Open(raw)
	if err != nil {
		return fail(raw, CheckEmpty, "path not readable")
	}
	defer d.Close()
	if _, err := d.Readdirnames(1); !errors.Is(err, io.EOF) {
		return fail(raw, CheckEmpty, "path not empty")
	}
	return nil
}
