package collab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/fsutil"
)

// CommandObfuscator runs the configured obfuscation command in the source
// tree. Before that it seeds <workdir>/dist with the top-level project files
// of the source tree (setup.py, pyproject.toml, MANIFEST.in, ...) so the
// result can be assembled like the original project.
//
// Args placeholders: {src}, {workdir}, {dist}, {package}.
type CommandObfuscator struct {
	tool
}

// NewCommandObfuscator creates an obfuscator for cfg.
func NewCommandObfuscator(cfg config.ToolConfig, opts ...Option) *CommandObfuscator {
	return &CommandObfuscator{tool: newTool(cfg, opts)}
}

// Build implements Obfuscator.
func (o *CommandObfuscator) Build(ctx context.Context, src, workdir, pkg string) error {
	dist := filepath.Join(workdir, DistDirName)
	if err := os.MkdirAll(dist, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dist, err)
	}
	if err := copyProjectFiles(src, dist); err != nil {
		return err
	}
	return o.run(ctx, src, map[string]string{
		"src":     src,
		"workdir": workdir,
		"dist":    dist,
		"package": pkg,
	})
}

// copyProjectFiles copies the regular, non-hidden files at the top level of src into dst.
func copyProjectFiles(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("list %s: %w", src, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := fsutil.CopyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
