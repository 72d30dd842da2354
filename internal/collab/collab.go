// Package collab defines the opaque external collaborators of the pipeline,
// the obfuscator and the package assembler, and their subprocess backed
// default implementations.
package collab

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/logfields"
	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/toolexec"
)

// DistDirName is the directory below a build path that receives artifacts.
const DistDirName = "dist"

// Obfuscator transforms the package sources of src into <workdir>/dist.
type Obfuscator interface {
	Build(ctx context.Context, src, workdir, pkg string) error
}

// Assembler builds a distributable package from a project directory.
type Assembler interface {
	// Build assembles buildPath. A non-empty version is stamped into the artifacts.
	Build(ctx context.Context, buildPath, version string) error
	// MoveToOutput moves the artifacts of buildPath into outputDir and
	// returns their file names.
	MoveToOutput(buildPath, outputDir string) ([]string, error)
}

// Option configures the command collaborators.
type Option func(*tool)

// WithRunner replaces the subprocess runner.
func WithRunner(r toolexec.Runner) Option {
	return func(t *tool) {
		if r != nil {
			t.runner = r
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(t *tool) { t.recorder = metrics.OrNoop(r) }
}

// tool is a configured external command shared by the collaborators.
type tool struct {
	cfg      config.ToolConfig
	runner   toolexec.Runner
	recorder metrics.Recorder
}

func newTool(cfg config.ToolConfig, opts []Option) tool {
	t := tool{cfg: cfg, runner: toolexec.ExecRunner{}, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t tool) run(ctx context.Context, dir string, vars map[string]string, extraEnv ...string) error {
	cmd := toolexec.Command{
		Name: t.cfg.Command,
		Args: toolexec.Expand(t.cfg.Args, vars),
		Dir:  dir,
		Env:  append(toolexec.EnvList(t.cfg.Env), extraEnv...),
	}
	slog.InfoContext(ctx, "Running "+cmd.Name, logfields.Tool(cmd.Name), logfields.Path(dir))

	res, err := t.runner.Run(ctx, cmd)
	t.recorder.ObserveToolDuration(cmd.Name, res.Duration, err == nil)
	if err == nil {
		return nil
	}
	var toolErr *toolexec.ExternalToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return &toolexec.ExternalToolError{
		Tool: cmd.Name, Args: cmd.Args, Dir: dir,
		Stdout: res.Stdout, Stderr: res.Stderr, Err: err,
	}
}
