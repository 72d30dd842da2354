package pipeline

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in a run.
type Stage func(ctx context.Context, st *BuildState) error

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names.
const (
	StageValidateInputs StageName = "validate_inputs"
	StageResolvePackage StageName = "resolve_package"
	StageResolveVersion StageName = "resolve_version"
	StagePrepareOutput  StageName = "prepare_output"
	StageStubsManifest  StageName = "stubs_manifest"
	StageGenerateStubs  StageName = "generate_stubs"
	StageAssembleStubs  StageName = "assemble_stubs"
	StageSourceManifest StageName = "source_manifest"
	StageObfuscate      StageName = "obfuscate"
	StageAssemble       StageName = "assemble"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

// NewFatalStageError creates a new fatal stage error.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func NewWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Plan is a fluent builder for ordered stage definitions.
type Plan struct{ defs []StageDef }

// NewPlan creates an empty plan.
func NewPlan() *Plan { return &Plan{defs: make([]StageDef, 0, 10)} }

// Add appends a stage unconditionally.
func (p *Plan) Add(name StageName, fn Stage) *Plan {
	p.defs = append(p.defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Plan) AddIf(cond bool, name StageName, fn Stage) *Plan {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a copy of the stage definitions.
func (p *Plan) Build() []StageDef {
	out := make([]StageDef, len(p.defs))
	copy(out, p.defs)
	return out
}

// Names returns the stage names in order.
func (p *Plan) Names() []StageName {
	out := make([]StageName, len(p.defs))
	for i, d := range p.defs {
		out[i] = d.Name
	}
	return out
}
