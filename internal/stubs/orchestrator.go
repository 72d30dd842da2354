package stubs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	"git.home.luguber.info/inful/obfpkg/internal/fsutil"
	"git.home.luguber.info/inful/obfpkg/internal/logfields"
	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/retry"
	"git.home.luguber.info/inful/obfpkg/internal/toolexec"
)

// BuildContext describes one stub generation run.
type BuildContext struct {
	SourcePath  string
	BuildPath   string
	PackageName string
	Verbose     bool
}

// State is the position of an Orchestrator within one Generate call.
type State string

const (
	StateReset          State = "reset"
	StateToolInvoked    State = "tool_invoked"
	StateOverlaid       State = "overlaid"
	StateOverlaySkipped State = "overlay_skipped"
	StateRenamed        State = "renamed"
	StateExhausted      State = "exhausted"
)

// Orchestrator generates the stubs package inside a build directory it owns.
// It is not safe for concurrent use.
type Orchestrator struct {
	bc       BuildContext
	runner   toolexec.Runner
	stubgen  toolexec.Command
	overlay  bool
	pattern  string
	suffix   string
	policy   retry.Policy
	recorder metrics.Recorder

	matcher        glob.Glob
	state          State
	overlaid       []string
	renameAttempts int
}

// New resolves the context paths, checks the build path and clears its
// subdirectories.
func New(bc BuildContext, opts ...Option) (*Orchestrator, error) {
	src, err := filepath.Abs(bc.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	build, err := filepath.Abs(bc.BuildPath)
	if err != nil {
		return nil, fmt.Errorf("resolve build path: %w", err)
	}
	bc.SourcePath, bc.BuildPath = src, build

	if info, statErr := os.Stat(build); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBuildPathNotDir, build)
	}

	o := &Orchestrator{
		bc:       bc,
		runner:   toolexec.ExecRunner{},
		stubgen:  toolexec.Command{Name: DefaultStubgen},
		overlay:  true,
		pattern:  DefaultPattern,
		suffix:   DefaultSuffix,
		policy:   retry.DefaultPolicy(),
		recorder: metrics.NoopRecorder{},
		state:    StateReset,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.matcher, err = glob.Compile(o.pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid stub overlay pattern %q: %w", o.pattern, err)
	}

	if err := o.CleanUp(); err != nil {
		return nil, err
	}
	return o, nil
}

// Context returns the resolved build context.
func (o *Orchestrator) Context() BuildContext { return o.bc }

// State returns the state reached by the last Generate call.
func (o *Orchestrator) State() State { return o.state }

// Overlaid returns the relative paths copied by the last overlay.
func (o *Orchestrator) Overlaid() []string { return o.overlaid }

// RenameAttempts returns the number of rename attempts of the last Generate call.
func (o *Orchestrator) RenameAttempts() int { return o.renameAttempts }

// StubsDir is the final location of the stubs package.
func (o *Orchestrator) StubsDir() string {
	return filepath.Join(o.bc.BuildPath, o.bc.PackageName+o.suffix)
}

// CleanUp removes every immediate subdirectory of the build path. Files at
// the top level are kept and entries that vanished meanwhile are ignored.
func (o *Orchestrator) CleanUp() error {
	entries, err := os.ReadDir(o.bc.BuildPath)
	if err != nil {
		return fmt.Errorf("list build path: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(o.bc.BuildPath, e.Name())
		if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clean build path: %w", err)
		}
		slog.Debug("Removed build state", logfields.Path(dir))
	}
	return nil
}

// Generate runs the stub generator, applies the overlay and renames the
// generated package. The generator's output is returned even on failure.
func (o *Orchestrator) Generate(ctx context.Context) (toolexec.Result, error) {
	o.state = StateReset
	o.overlaid = nil
	o.renameAttempts = 0

	args := make([]string, 0, len(o.stubgen.Args)+4)
	args = append(args, o.stubgen.Args...)
	args = append(args, "-o", o.bc.BuildPath, "-p", o.bc.PackageName)
	cmd := toolexec.Command{Name: o.stubgen.Name, Args: args, Dir: o.bc.SourcePath, Env: o.stubgen.Env}

	res, err := o.runner.Run(ctx, cmd)
	o.recorder.ObserveToolDuration(cmd.Name, res.Duration, err == nil)
	o.state = StateToolInvoked
	if err != nil {
		var toolErr *toolexec.ExternalToolError
		if !errors.As(err, &toolErr) {
			toolErr = &toolexec.ExternalToolError{
				Tool: cmd.Name, Args: cmd.Args, Dir: cmd.Dir,
				Stdout: res.Stdout, Stderr: res.Stderr, Err: err,
			}
		}
		return res, toolErr
	}
	if o.bc.Verbose && len(res.Stdout) > 0 {
		slog.DebugContext(ctx, "Stub generator output", logfields.Tool(cmd.Name), slog.String("stdout", string(res.Stdout)))
	}

	if o.overlay {
		files, err := o.OverwriteFromSource()
		if err != nil {
			slog.WarnContext(ctx, "Stub overlay incomplete", logfields.Error(err))
		}
		o.overlaid = files
		if o.bc.Verbose {
			for _, f := range files {
				slog.Info("Overwrote generated stub from source", logfields.Path(f))
			}
		}
		o.state = StateOverlaid
	} else {
		slog.InfoContext(ctx, "Stub overlay skipped", logfields.Package(o.bc.PackageName))
		o.state = StateOverlaySkipped
	}

	if err := o.rename(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// OverwriteFromSource copies the source files matching the overlay pattern
// to the same relative location under the build path. It returns the
// relative, slash separated paths that were copied. Copy failures are
// joined; the remaining files are still copied.
func (o *Orchestrator) OverwriteFromSource() ([]string, error) {
	depth := patternDepth(o.pattern)
	var matches []string
	err := filepath.WalkDir(o.bc.SourcePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == o.bc.SourcePath {
			return nil
		}
		rel, err := filepath.Rel(o.bc.SourcePath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if path == o.bc.BuildPath || (depth > 0 && segments(rel) >= depth) {
				return filepath.SkipDir
			}
			return nil
		}
		if o.matcher.Match(rel) {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source for stubs: %w", err)
	}

	var copied []string
	var errs []error
	for _, rel := range matches {
		src := filepath.Join(o.bc.SourcePath, filepath.FromSlash(rel))
		dst := filepath.Join(o.bc.BuildPath, filepath.FromSlash(rel))
		if err := fsutil.CopyFile(src, dst); err != nil {
			errs = append(errs, err)
			continue
		}
		copied = append(copied, rel)
	}
	return copied, errors.Join(errs...)
}

func (o *Orchestrator) rename(ctx context.Context) error {
	from := filepath.Join(o.bc.BuildPath, o.bc.PackageName)
	to := o.StubsDir()
	attempts := o.policy.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		o.renameAttempts = attempt
		lastErr = os.Rename(from, to)
		if lastErr == nil {
			o.state = StateRenamed
			slog.InfoContext(ctx, "Stubs package generated", logfields.Path(to), logfields.Attempt(attempt))
			return nil
		}

		slog.WarnContext(ctx, "Stubs rename failed", logfields.Attempt(attempt), logfields.Error(lastErr))
		if attempt == attempts {
			break
		}
		o.recorder.IncRenameRetry()
		if errors.Is(lastErr, fs.ErrExist) {
			// Conflicting destination from an earlier run; failures surface on the next attempt.
			_ = os.RemoveAll(to)
			continue
		}
		if err := o.policy.Wait(ctx, attempt); err != nil {
			lastErr = err
			break
		}
	}

	o.state = StateExhausted
	o.recorder.IncRenameExhausted()
	return &RenameExhaustedError{From: from, To: to, Attempts: o.renameAttempts, Err: lastErr}
}
