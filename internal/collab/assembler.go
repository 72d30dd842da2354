package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/fsutil"
	"git.home.luguber.info/inful/obfpkg/internal/logfields"
)

// VersionEnv carries the version stamp to the assembler command.
const VersionEnv = "OBFPKG_VERSION"

// ErrNoArtifacts is returned by MoveToOutput when the assembler left nothing behind.
var ErrNoArtifacts = errors.New("assembler produced no artifacts")

// CommandAssembler runs the configured packaging command inside the build
// path and collects <build>/dist.
//
// Args placeholders: {build}, {version}.
type CommandAssembler struct {
	tool
}

// NewCommandAssembler creates an assembler for cfg.
func NewCommandAssembler(cfg config.ToolConfig, opts ...Option) *CommandAssembler {
	return &CommandAssembler{tool: newTool(cfg, opts)}
}

// Build implements Assembler.
func (a *CommandAssembler) Build(ctx context.Context, buildPath, version string) error {
	var env []string
	if version != "" {
		env = append(env, VersionEnv+"="+version)
	}
	return a.run(ctx, buildPath, map[string]string{
		"build":   buildPath,
		"version": version,
	}, env...)
}

// MoveToOutput implements Assembler. Existing files of the same name in
// outputDir are replaced.
func (a *CommandAssembler) MoveToOutput(buildPath, outputDir string) ([]string, error) {
	dist := filepath.Join(buildPath, DistDirName)
	entries, err := os.ReadDir(dist)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoArtifacts, dist)
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var moved []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		from := filepath.Join(dist, e.Name())
		to := filepath.Join(outputDir, e.Name())
		if err := moveFile(from, to); err != nil {
			return moved, err
		}
		slog.Info("Artifact ready", logfields.Path(to))
		moved = append(moved, e.Name())
	}
	if len(moved) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoArtifacts, dist)
	}
	return moved, nil
}

// moveFile renames from to to, falling back to copy and remove across filesystems.
func moveFile(from, to string) error {
	if err := os.Rename(from, to); err == nil {
		return nil
	}
	if err := fsutil.CopyFile(from, to); err != nil {
		return err
	}
	if err := os.Remove(from); err != nil {
		return fmt.Errorf("remove %s: %w", from, err)
	}
	return nil
}
