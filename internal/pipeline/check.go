package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/versioning"
)

// CheckResult is the plan a run would execute.
type CheckResult struct {
	Source    string
	Package   string
	OutputDir string
	StubsDir  string
	Version   versioning.Stamp
	Stages    []StageName
	Warnings  []string
}

// Check validates opts and resolves the package, version and output
// directory without touching the filesystem.
func (c *Coordinator) Check(ctx context.Context, opts Options) (*CheckResult, error) {
	st := &BuildState{Options: opts, Report: newReport("check"), coord: c, recorder: metrics.NoopRecorder{}}
	pre := NewPlan().
		Add(StageValidateInputs, stageValidateInputs).
		Add(StageResolvePackage, stageResolvePackage).
		Add(StageResolveVersion, stageResolveVersion).
		Build()
	if err := RunStages(ctx, st, pre); err != nil {
		return nil, err
	}

	out := st.Options.OutputDir
	if out == "" {
		out = filepath.Join(st.Options.Source, "..", DefaultOutputDirName)
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}

	return &CheckResult{
		Source:    st.Options.Source,
		Package:   st.Report.Package,
		OutputDir: abs,
		StubsDir:  st.Options.StubsDir,
		Version:   st.Report.Version,
		Stages:    c.Plan(opts).Names(),
		Warnings:  st.Report.Warnings,
	}, nil
}
