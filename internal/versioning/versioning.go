// Package versioning derives the version stamped onto the assembled
// package from the git repository containing the source tree.
package versioning

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/obfpkg/internal/logfields"
)

// EnvOverride, when set, replaces any derived version.
const EnvOverride = "OBFPKG_VERSION"

// Source tells where a stamp came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceTag      Source = "tag"
	SourceCommit   Source = "commit"
	SourceFallback Source = "fallback"
)

// Stamp is the resolved package version.
type Stamp struct {
	Version string
	Commit  string
	Tag     string
	Source  Source
}

// Resolver derives stamps. The zero value is usable.
type Resolver struct {
	// Override takes precedence over everything else when non-empty.
	Override string
	// Now is the clock used for fallback versions.
	Now func() time.Time
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve returns the version for the tree at srcPath:
//   - an explicit override (Resolver.Override, then $OBFPKG_VERSION)
//   - the highest tag pointing at HEAD, without a leading "v"
//   - 0.0.0+g<short hash> for untagged commits
//   - 0.0.0.dev<timestamp> outside a repository or on an unborn branch
func (r Resolver) Resolve(srcPath string) (Stamp, error) {
	if v := strings.TrimSpace(r.Override); v != "" {
		return Stamp{Version: v, Source: SourceOverride}, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvOverride)); v != "" {
		return Stamp{Version: v, Source: SourceOverride}, nil
	}

	repo, err := git.PlainOpenWithOptions(srcPath, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return r.fallback(), nil
	}
	if err != nil {
		return Stamp{}, fmt.Errorf("open repository for %s: %w", srcPath, err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return r.fallback(), nil
	}
	if err != nil {
		return Stamp{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	tag, err := tagAt(repo, head.Hash())
	if err != nil {
		return Stamp{}, err
	}
	commit := head.Hash().String()
	if tag != "" {
		s := Stamp{Version: strings.TrimPrefix(tag, "v"), Commit: commit, Tag: tag, Source: SourceTag}
		slog.Debug("Version stamped from tag", logfields.Version(s.Version), slog.String("tag", tag))
		return s, nil
	}
	return Stamp{Version: "0.0.0+g" + commit[:7], Commit: commit, Source: SourceCommit}, nil
}

func (r Resolver) fallback() Stamp {
	return Stamp{Version: "0.0.0.dev" + r.now().UTC().Format("20060102150405"), Source: SourceFallback}
}

// tagAt returns the lexically highest tag whose target commit is hash.
func tagAt(repo *git.Repository, hash plumbing.Hash) (string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return "", fmt.Errorf("list tags: %w", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, err := repo.TagObject(ref.Hash()); err == nil {
			target = obj.Target
		}
		if target == hash {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("iterate tags: %w", err)
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}
