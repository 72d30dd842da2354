package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/obfpkg/internal/metrics"
)

type stageRecorder struct {
	metrics.NoopRecorder
	results  map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	retries  int
}

func newStageRecorder() *stageRecorder {
	return &stageRecorder{results: map[string]metrics.ResultLabel{}}
}

func (r *stageRecorder) IncStageResult(stage string, res metrics.ResultLabel) { r.results[stage] = res }
func (r *stageRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.outcomes = append(r.outcomes, o)
}
func (r *stageRecorder) IncRenameRetry() { r.retries++ }

func newTestState(rec metrics.Recorder) *BuildState {
	return &BuildState{Report: newReport("test"), recorder: rec}
}

func TestRunStages_StopsAtFirstFatal(t *testing.T) {
	rec := newStageRecorder()
	st := newTestState(rec)
	var ran []StageName
	step := func(name StageName, err error) Stage {
		return func(context.Context, *BuildState) error {
			ran = append(ran, name)
			return err
		}
	}
	boom := errors.New("boom")

	plan := NewPlan().
		Add(StageResolvePackage, step(StageResolvePackage, nil)).
		Add(StageResolveVersion, step(StageResolveVersion, NewWarnStageError(StageResolveVersion, errors.New("no git")))).
		Add(StageObfuscate, step(StageObfuscate, boom)).
		Add(StageAssemble, step(StageAssemble, nil))

	err := RunStages(t.Context(), st, plan.Build())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorFatal, se.Kind)
	assert.Equal(t, StageObfuscate, se.Stage)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []StageName{StageResolvePackage, StageResolveVersion, StageObfuscate}, ran)
	assert.Equal(t, StageResultSuccess, st.Report.StageResults[StageResolvePackage])
	assert.Equal(t, StageResultWarning, st.Report.StageResults[StageResolveVersion])
	assert.Equal(t, StageResultFatal, st.Report.StageResults[StageObfuscate])
	assert.NotContains(t, st.Report.StageResults, StageAssemble)
	assert.Len(t, st.Report.Warnings, 1)
	assert.Equal(t, metrics.ResultWarning, rec.results[string(StageResolveVersion)])
	assert.Contains(t, st.Report.StageDurations, StageObfuscate)
}

func TestRunStages_CanceledBeforeStage(t *testing.T) {
	st := newTestState(metrics.NoopRecorder{})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := RunStages(ctx, st, NewPlan().Add(StageObfuscate, func(context.Context, *BuildState) error {
		called = true
		return nil
	}).Build())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorCanceled, se.Kind)
	assert.False(t, called)
	assert.Equal(t, StageResultCanceled, st.Report.StageResults[StageObfuscate])
}

func TestRunStages_CanceledDuringStage(t *testing.T) {
	st := newTestState(metrics.NoopRecorder{})
	err := RunStages(t.Context(), st, NewPlan().Add(StageAssemble, func(context.Context, *BuildState) error {
		return context.DeadlineExceeded
	}).Build())

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorCanceled, se.Kind)
}

func TestPlan_AddIf(t *testing.T) {
	noop := func(context.Context, *BuildState) error { return nil }
	p := NewPlan().Add(StageValidateInputs, noop).AddIf(false, StageGenerateStubs, noop).AddIf(true, StageAssemble, noop)
	assert.Equal(t, []StageName{StageValidateInputs, StageAssemble}, p.Names())

	defs := p.Build()
	defs[0].Name = "mutated"
	assert.Equal(t, StageValidateInputs, p.Names()[0], "Build returns a copy")
}

func TestReport_Finish(t *testing.T) {
	r := newReport("id")
	time.Sleep(time.Millisecond)
	r.finish(OutcomeFailed)
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Positive(t, r.Duration)
	assert.Equal(t, metrics.OutcomeFailed, r.Outcome.label())
}
