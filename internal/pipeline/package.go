package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PackageNotFoundError reports a source tree without a package candidate.
type PackageNotFoundError struct {
	Source string
	Name   string // explicitly requested name, if any
}

func (e *PackageNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("package %q not found in %s", e.Name, e.Source)
	}
	return fmt.Sprintf("package not found in %s", e.Source)
}

// AmbiguousPackageError reports a source tree with several package
// candidates and no explicit selection.
type AmbiguousPackageError struct {
	Source     string
	Candidates []string
}

func (e *AmbiguousPackageError) Error() string {
	return fmt.Sprintf("multiple packages in %s (%s); select one with --package", e.Source, strings.Join(e.Candidates, ", "))
}

// PackageCandidates lists the top-level, non-hidden subdirectories of src, sorted.
func PackageCandidates(src string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("list source tree: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// ResolvePackage returns the single package name of the source tree. An
// explicit name must be a directory directly below src.
func ResolvePackage(src, explicit string) (string, error) {
	if explicit != "" {
		if strings.ContainsRune(explicit, filepath.Separator) || strings.Contains(explicit, "/") || explicit == "." || explicit == ".." {
			return "", &PackageNotFoundError{Source: src, Name: explicit}
		}
		info, err := os.Stat(filepath.Join(src, explicit))
		if err != nil || !info.IsDir() {
			return "", &PackageNotFoundError{Source: src, Name: explicit}
		}
		return explicit, nil
	}

	candidates, err := PackageCandidates(src)
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 0:
		return "", &PackageNotFoundError{Source: src}
	case 1:
		return candidates[0], nil
	default:
		return "", &AmbiguousPackageError{Source: src, Candidates: candidates}
	}
}
