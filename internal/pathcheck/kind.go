package pathcheck

import (
	"os"
	"strings"
)

// Kind is a type policy: a human readable label plus a predicate over a
// path string. File, Directory, Symlink and Any are the named variants;
// KindSet and Predicate cover the composite and custom cases.
type Kind interface {
	Label() string
	Matches(path string) bool
}

type fileKind struct{}

func (fileKind) Label() string { return "file" }
func (fileKind) Matches(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

type directoryKind struct{}

func (directoryKind) Label() string { return "directory" }
func (directoryKind) Matches(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

type symlinkKind struct{}

func (symlinkKind) Label() string { return "symlink" }
func (symlinkKind) Matches(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}

type anyKind struct{}

func (anyKind) Label() string          { return "any" }
func (anyKind) Matches(_ string) bool { return true }

// Named kinds.
var (
	File      Kind = fileKind{}
	Directory Kind = directoryKind{}
	Symlink   Kind = symlinkKind{}
	Any       Kind = anyKind{}
)

// isNamed reports whether k is one of the four named variants.
func isNamed(k Kind) bool {
	switch k.(type) {
	case fileKind, directoryKind, symlinkKind, anyKind:
		return true
	}
	return false
}

// KindSet accepts a path when any member kind matches it.
type KindSet []Kind

func (s KindSet) Label() string {
	labels := make([]string, 0, len(s))
	for _, k := range s {
		labels = append(labels, k.Label())
	}
	return strings.Join(labels, "|")
}

func (s KindSet) Matches(path string) bool {
	for _, k := range s {
		if k.Matches(path) {
			return true
		}
	}
	return false
}

// Predicate adapts an arbitrary function into a Kind.
type Predicate struct {
	Name string
	Fn   func(path string) bool
}

func (p Predicate) Label() string {
	if p.Name == "" {
		return "custom"
	}
	return p.Name
}

func (p Predicate) Matches(path string) bool {
	return p.Fn != nil && p.Fn(path)
}
