package stubs

import (
	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/retry"
	"git.home.luguber.info/inful/obfpkg/internal/toolexec"
)

const (
	// DefaultSuffix is appended to the package name by the rename step.
	DefaultSuffix = "-stubs"
	// DefaultPattern selects hand-written stubs exactly one level below the source root.
	DefaultPattern = "*/*.pyi"
	// DefaultStubgen is the stub generator executable.
	DefaultStubgen = "stubgen"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the subprocess runner.
func WithRunner(r toolexec.Runner) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.runner = r
		}
	}
}

// WithStubgen sets the stub generator command. Args are placed before the
// generated "-o <build> -p <package>" arguments.
func WithStubgen(cmd toolexec.Command) Option {
	return func(o *Orchestrator) {
		if cmd.Name != "" {
			o.stubgen = cmd
		}
	}
}

// WithOverlay enables or disables copying hand-written stubs from the source tree.
func WithOverlay(enabled bool) Option {
	return func(o *Orchestrator) { o.overlay = enabled }
}

// WithPattern sets the overlay glob, matched against slash separated paths
// relative to the source root.
func WithPattern(pattern string) Option {
	return func(o *Orchestrator) {
		if pattern != "" {
			o.pattern = pattern
		}
	}
}

// WithSuffix sets the suffix of the renamed package directory.
func WithSuffix(suffix string) Option {
	return func(o *Orchestrator) {
		if suffix != "" {
			o.suffix = suffix
		}
	}
}

// WithRetryPolicy sets the rename retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = metrics.OrNoop(r) }
}
