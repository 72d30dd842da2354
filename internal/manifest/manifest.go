// Package manifest maintains the packaging manifest (MANIFEST.in) of a
// source or stubs project, ensuring required inclusion directives exist.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/obfpkg/internal/logfields"
)

// FileName is the manifest file name at the root of an augmented tree.
const FileName = "MANIFEST.in"

// RuntimeDirName is the auxiliary runtime directory emitted next to each
// obfuscated package; it must ship with the distribution.
const RuntimeDirName = "pytransform"

// Required directives.
const (
	StubsDirective   = "global-include *.pyi"
	RuntimeDirective = "recursive-include */" + RuntimeDirName + " *"
)

// DefaultDirectives is the ordered directive list ensured on every tree.
func DefaultDirectives() []string {
	return []string{StubsDirective, RuntimeDirective}
}

// Augmenter appends missing directives to a manifest file.
type Augmenter struct {
	directives []string
}

// NewAugmenter returns an Augmenter for the default directives followed by
// any extra ones. Blank extras are ignored.
func NewAugmenter(extra ...string) *Augmenter {
	ds := DefaultDirectives()
	for _, d := range extra {
		if d = strings.TrimSpace(d); d != "" {
			ds = append(ds, d)
		}
	}
	return &Augmenter{directives: ds}
}

// Directives returns the directives this Augmenter ensures, in order.
func (a *Augmenter) Directives() []string {
	return append([]string(nil), a.directives...)
}

// EnsureIn augments the manifest at the root of dir.
func (a *Augmenter) EnsureIn(dir string) ([]string, error) {
	return a.Ensure(filepath.Join(dir, FileName))
}

// Ensure appends every directive reported by Missing in a single
// append-mode write and returns what was added.
// A missing file is created.
func (a *Augmenter) Ensure(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	content := string(data)

	missing := Missing(content, a.directives)
	if len(missing) == 0 {
		slog.Debug("Manifest already complete", logfields.Path(path))
		return nil, nil
	}

	var b strings.Builder
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	for _, d := range missing {
		b.WriteString(strings.TrimSpace(d))
		b.WriteByte('\n')
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("append manifest %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close manifest %s: %w", path, err)
	}

	slog.Info("Manifest augmented", logfields.Path(path), logfields.Count(len(missing)))
	return missing, nil
}

// Missing returns the directives that do not occur in content, preserving
// order. Runs of blanks inside a line compare equal to a single space.
func Missing(content string, directives []string) []string {
	content = squeezeBlanks(content)
	var out []string
	for _, d := range directives {
		if !strings.Contains(content, squeezeBlanks(d)) {
			out = append(out, d)
		}
	}
	return out
}

func squeezeBlanks(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.Join(lines, "\n")
}
