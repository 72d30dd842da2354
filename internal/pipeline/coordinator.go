package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/obfpkg/internal/collab"
	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/eventstore"
	"git.home.luguber.info/inful/obfpkg/internal/logfields"
	"git.home.luguber.info/inful/obfpkg/internal/manifest"
	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/observability"
	"git.home.luguber.info/inful/obfpkg/internal/pathcheck"
	"git.home.luguber.info/inful/obfpkg/internal/retry"
	"git.home.luguber.info/inful/obfpkg/internal/stubs"
	"git.home.luguber.info/inful/obfpkg/internal/toolexec"
	"git.home.luguber.info/inful/obfpkg/internal/versioning"
	"git.home.luguber.info/inful/obfpkg/internal/workspace"
)

// DefaultOutputDirName is the output directory created next to the source
// tree when none is given.
const DefaultOutputDirName = "dist"

// Options are the inputs of one run.
type Options struct {
	Source    string
	OutputDir string // defaults to <Source>/../dist
	StubsDir  string // optional stubs project
	Package   string // explicit package selection
	NoOverlay bool
	Verbose   bool
	// KeepWorkdir leaves the scoped working directory in place for inspection.
	KeepWorkdir bool
	// StubsOnly stops after the stubs package; requires StubsDir.
	StubsOnly bool
}

// VersionResolver derives the version stamped into the obfuscated package.
type VersionResolver interface {
	Resolve(srcPath string) (versioning.Stamp, error)
}

// Coordinator wires the collaborators of a run.
type Coordinator struct {
	obfuscator collab.Obfuscator
	assembler  collab.Assembler
	augmenter  *manifest.Augmenter
	versions   VersionResolver
	recorder   metrics.Recorder
	store      eventstore.Store
	runner     toolexec.Runner
	stubgen    toolexec.Command
	stubsCfg   config.StubsConfig
	policy     retry.Policy
	newID      func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObfuscator replaces the command obfuscator.
func WithObfuscator(o collab.Obfuscator) Option { return func(c *Coordinator) { c.obfuscator = o } }

// WithAssembler replaces the command assembler.
func WithAssembler(a collab.Assembler) Option { return func(c *Coordinator) { c.assembler = a } }

// WithVersionResolver replaces the git based version resolver.
func WithVersionResolver(v VersionResolver) Option {
	return func(c *Coordinator) { c.versions = v }
}

// WithRunner sets the runner used for the stub generator.
func WithRunner(r toolexec.Runner) Option { return func(c *Coordinator) { c.runner = r } }

// WithRecorder sets the metrics recorder for stages, tools and outcome.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) { c.recorder = metrics.OrNoop(r) }
}

// WithStore records the run in a build history store.
func WithStore(s eventstore.Store) Option { return func(c *Coordinator) { c.store = s } }

// WithIDGenerator replaces the build ID generator.
func WithIDGenerator(fn func() string) Option { return func(c *Coordinator) { c.newID = fn } }

// NewCoordinator builds a coordinator from cfg. Collaborators not replaced
// by an option run the commands configured in cfg.Tools.
func NewCoordinator(cfg *config.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Coordinator{
		augmenter: manifest.NewAugmenter(cfg.Manifest.ExtraDirectives...),
		versions:  versioning.Resolver{},
		recorder:  metrics.NoopRecorder{},
		runner:    toolexec.ExecRunner{},
		stubgen: toolexec.Command{
			Name: cfg.Tools.Stubgen.Command,
			Args: cfg.Tools.Stubgen.Args,
			Env:  toolexec.EnvList(cfg.Tools.Stubgen.Env),
		},
		stubsCfg: cfg.Stubs,
		policy:   retry.FromConfig(cfg.Retry),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.obfuscator == nil {
		c.obfuscator = collab.NewCommandObfuscator(cfg.Tools.Obfuscator, collab.WithRunner(c.runner), collab.WithRecorder(c.recorder))
	}
	if c.assembler == nil {
		c.assembler = collab.NewCommandAssembler(cfg.Tools.Assembler, collab.WithRunner(c.runner), collab.WithRecorder(c.recorder))
	}
	return c
}

// BuildState carries the mutable state shared by the stages of one run.
type BuildState struct {
	Options Options
	Report  *Report

	coord    *Coordinator
	recorder metrics.Recorder
	store    eventstore.Store // nil disables history
	workdir  string           // set while the obfuscation stages run
}

// Plan returns the stage plan for opts.
func (c *Coordinator) Plan(opts Options) *Plan {
	withStubs := opts.StubsDir != ""
	withObfuscation := !opts.StubsOnly
	return NewPlan().
		Add(StageValidateInputs, stageValidateInputs).
		Add(StageResolvePackage, stageResolvePackage).
		Add(StageResolveVersion, stageResolveVersion).
		Add(StagePrepareOutput, stagePrepareOutput).
		AddIf(withStubs, StageStubsManifest, stageStubsManifest).
		AddIf(withStubs, StageGenerateStubs, stageGenerateStubs).
		AddIf(withStubs, StageAssembleStubs, stageAssembleStubs).
		AddIf(withObfuscation, StageSourceManifest, stageSourceManifest).
		AddIf(withObfuscation, StageObfuscate, stageObfuscate).
		AddIf(withObfuscation, StageAssemble, stageAssemble)
}

// Run executes the pipeline for opts. The returned report is never nil.
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Report, error) {
	report := newReport(c.newID())
	report.Source = opts.Source
	ctx = observability.WithBuildID(ctx, report.BuildID)

	st := &BuildState{Options: opts, Report: report, coord: c, recorder: c.recorder, store: c.store}

	slog.InfoContext(ctx, "Build started", logfields.Path(opts.Source))
	prepare, scoped := splitAt(c.Plan(opts).Build(), StageObfuscate)
	err := RunStages(ctx, st, prepare)
	if err == nil && len(scoped) > 0 {
		err = st.inWorkdir(func() error { return RunStages(ctx, st, scoped) })
	}

	outcome := OutcomeSuccess
	var se *StageError
	switch {
	case err == nil:
	case errors.As(err, &se) && se.Kind == StageErrorCanceled:
		outcome = OutcomeCanceled
	default:
		outcome = OutcomeFailed
	}
	report.finish(outcome)
	c.recorder.ObserveBuildDuration(report.Duration)
	c.recorder.IncBuildOutcome(outcome.label())

	if err != nil {
		stage := ""
		if se != nil {
			stage = string(se.Stage)
		}
		st.emit(ctx, func() (eventstore.Event, error) {
			return eventstore.NewBuildFailed(report.BuildID, stage, err.Error())
		})
		slog.ErrorContext(ctx, "Build failed", logfields.Stage(stage), logfields.Error(err))
		return report, err
	}

	st.emit(ctx, func() (eventstore.Event, error) {
		return eventstore.NewBuildCompleted(report.BuildID, report.Duration)
	})
	slog.InfoContext(ctx, "Build completed",
		logfields.Package(report.Package),
		logfields.Version(report.Version.Version),
		logfields.Count(len(report.Artifacts)+len(report.StubArtifacts)),
		logfields.Duration(report.Duration))
	return report, nil
}

// splitAt cuts stages before the first stage named name.
func splitAt(stages []StageDef, name StageName) (before, from []StageDef) {
	for i, d := range stages {
		if d.Name == name {
			return stages[:i], stages[i:]
		}
	}
	return stages, nil
}

// inWorkdir runs fn with a fresh working directory next to the source tree.
// The directory is removed however fn ends unless KeepWorkdir is set.
func (st *BuildState) inWorkdir(fn func() error) error {
	src, err := filepath.Abs(st.Options.Source)
	if err != nil {
		return st.workdirFailed(err)
	}
	mgr := workspace.NewManager(filepath.Dir(src), workspace.WithKeep(st.Options.KeepWorkdir))
	entered := false
	err = workspace.With(mgr, func(dir string) error {
		entered = true
		st.workdir = dir
		defer func() { st.workdir = "" }()
		return fn()
	})
	if err != nil && !entered {
		return st.workdirFailed(err)
	}
	return err
}

func (st *BuildState) workdirFailed(err error) error {
	st.Report.RecordStageResult(StageObfuscate, StageResultFatal, st.recorder)
	return NewFatalStageError(StageObfuscate, fmt.Errorf("create working directory: %w", err))
}

// emit appends a history event. History failures never fail the run.
func (st *BuildState) emit(ctx context.Context, build func() (eventstore.Event, error)) {
	if st.store == nil {
		return
	}
	evt, err := build()
	if err == nil {
		// The history outlives a canceled run.
		err = eventstore.AppendEvent(context.WithoutCancel(ctx), st.store, evt)
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}

// ErrStubsDirRequired is returned for a stubs-only run without a stubs directory.
var ErrStubsDirRequired = errors.New("stubs-only run requires a stubs directory")

func stageValidateInputs(_ context.Context, st *BuildState) error {
	if st.Options.StubsOnly && st.Options.StubsDir == "" {
		return ErrStubsDirRequired
	}
	src, err := pathcheck.ExistingDir().Validate(st.Options.Source)
	if err != nil {
		return err
	}
	st.Options.Source = src.String()
	if st.Options.OutputDir != "" {
		out, err := pathcheck.EmptyOrAbsentDir().Validate(st.Options.OutputDir)
		if err != nil {
			return err
		}
		st.Options.OutputDir = out.String()
	}
	if st.Options.StubsDir != "" {
		stubsDir, err := pathcheck.ExistingDir().Validate(st.Options.StubsDir)
		if err != nil {
			return err
		}
		st.Options.StubsDir = stubsDir.String()
	}
	return nil
}

func stageResolvePackage(_ context.Context, st *BuildState) error {
	pkg, err := ResolvePackage(st.Options.Source, st.Options.Package)
	if err != nil {
		return err
	}
	st.Report.Package = pkg
	slog.Info("Package resolved", logfields.Package(pkg))
	return nil
}

func stageResolveVersion(_ context.Context, st *BuildState) error {
	stamp, err := st.coord.versions.Resolve(st.Options.Source)
	if err != nil {
		return NewWarnStageError(StageResolveVersion, fmt.Errorf("version stamp unavailable: %w", err))
	}
	st.Report.Version = stamp
	slog.Info("Version resolved", logfields.Version(stamp.Version), slog.String("source", string(stamp.Source)))
	return nil
}

func stagePrepareOutput(ctx context.Context, st *BuildState) error {
	out := st.Options.OutputDir
	if out == "" {
		out = filepath.Join(st.Options.Source, "..", DefaultOutputDirName)
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.Mkdir(abs, 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create output directory: %w", err)
	}
	st.Report.OutputDir = abs

	st.emit(ctx, func() (eventstore.Event, error) {
		return eventstore.NewBuildStarted(st.Report.BuildID, st.Options.Source, abs, st.Report.Package, st.Report.Version.Version)
	})
	return nil
}

func (st *BuildState) augment(dir string) error {
	added, err := st.coord.augmenter.EnsureIn(dir)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		st.Report.ManifestAdded[filepath.Join(dir, manifest.FileName)] = added
	}
	return nil
}

func stageStubsManifest(_ context.Context, st *BuildState) error {
	// The stubs project may have changed since argument validation.
	dir, err := pathcheck.ExistingDir().Validate(st.Options.StubsDir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir.String())
	if err != nil {
		return fmt.Errorf("resolve stubs directory: %w", err)
	}
	st.Options.StubsDir = abs
	return st.augment(abs)
}

func (st *BuildState) orchestrator() (*stubs.Orchestrator, error) {
	c := st.coord
	return stubs.New(stubs.BuildContext{
		SourcePath:  st.Options.Source,
		BuildPath:   st.Options.StubsDir,
		PackageName: st.Report.Package,
		Verbose:     st.Options.Verbose,
	},
		stubs.WithRunner(c.runner),
		stubs.WithStubgen(c.stubgen),
		stubs.WithOverlay(c.stubsCfg.OverlayEnabled() && !st.Options.NoOverlay),
		stubs.WithPattern(c.stubsCfg.Pattern),
		stubs.WithSuffix(c.stubsCfg.Suffix),
		stubs.WithRetryPolicy(c.policy),
		stubs.WithRecorder(c.recorder),
	)
}

func stageGenerateStubs(ctx context.Context, st *BuildState) error {
	orch, err := st.orchestrator()
	if err != nil {
		return err
	}
	if _, err := orch.Generate(ctx); err != nil {
		return err
	}
	st.Report.StubsDir = orch.StubsDir()
	st.Report.Overlaid = orch.Overlaid()
	st.emit(ctx, func() (eventstore.Event, error) {
		return eventstore.NewStubsGenerated(st.Report.BuildID, orch.StubsDir(), orch.State() == stubs.StateOverlaid, orch.RenameAttempts())
	})
	return nil
}

func stageAssembleStubs(ctx context.Context, st *BuildState) error {
	build := st.Options.StubsDir
	if err := st.coord.assembler.Build(ctx, build, ""); err != nil {
		return err
	}
	files, err := st.coord.assembler.MoveToOutput(build, st.Report.OutputDir)
	st.Report.StubArtifacts = files
	if err != nil {
		return err
	}
	st.emit(ctx, func() (eventstore.Event, error) {
		return eventstore.NewArtifactsProduced(st.Report.BuildID, st.Report.OutputDir, files)
	})

	// Second clean up: the build state of the stubs project is disposable.
	orch, err := st.orchestrator()
	if err != nil {
		return err
	}
	return orch.CleanUp()
}

func stageSourceManifest(_ context.Context, st *BuildState) error {
	return st.augment(st.Options.Source)
}

func stageObfuscate(ctx context.Context, st *BuildState) error {
	if st.workdir == "" {
		return fmt.Errorf("no working directory for %s", st.Options.Source)
	}
	slog.InfoContext(ctx, "Obfuscating package", logfields.Package(st.Report.Package), logfields.Path(st.workdir))
	return st.coord.obfuscator.Build(ctx, st.Options.Source, st.workdir, st.Report.Package)
}

func stageAssemble(ctx context.Context, st *BuildState) error {
	build := filepath.Join(st.workdir, collab.DistDirName)
	if err := st.coord.assembler.Build(ctx, build, st.Report.Version.Version); err != nil {
		return err
	}
	files, err := st.coord.assembler.MoveToOutput(build, st.Report.OutputDir)
	st.Report.Artifacts = files
	if err != nil {
		return err
	}
	st.emit(ctx, func() (eventstore.Event, error) {
		return eventstore.NewArtifactsProduced(st.Report.BuildID, st.Report.OutputDir, files)
	})
	return nil
}
