package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/obfpkg/internal/eventstore"
	"git.home.luguber.info/inful/obfpkg/internal/logfields"
	"git.home.luguber.info/inful/obfpkg/internal/observability"
)

// RunStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func RunStages(ctx context.Context, st *BuildState, stages []StageDef) error {
	for _, def := range stages {
		if err := ctx.Err(); err != nil {
			se := NewCanceledStageError(def.Name, err)
			st.Report.RecordStageResult(def.Name, StageResultCanceled, st.recorder)
			st.emit(ctx, func() (eventstore.Event, error) {
				return eventstore.NewStageCompleted(st.Report.BuildID, string(def.Name), string(StageResultCanceled), 0)
			})
			return se
		}

		stageCtx := observability.WithStage(ctx, string(def.Name))
		slog.DebugContext(stageCtx, "Stage started")
		t0 := time.Now()
		err := def.Fn(stageCtx, st)
		dur := time.Since(t0)

		st.Report.StageDurations[def.Name] = dur
		st.recorder.ObserveStageDuration(string(def.Name), dur)

		se, res := classifyStageResult(def.Name, err)
		st.Report.RecordStageResult(def.Name, res, st.recorder)
		st.emit(ctx, func() (eventstore.Event, error) {
			return eventstore.NewStageCompleted(st.Report.BuildID, string(def.Name), string(res), dur)
		})

		switch res {
		case StageResultSuccess:
			slog.DebugContext(stageCtx, "Stage finished", logfields.Duration(dur))
		case StageResultWarning:
			slog.WarnContext(stageCtx, "Stage finished with warning", logfields.Error(se.Err))
			st.Report.Warnings = append(st.Report.Warnings, se.Error())
		default:
			return se
		}
	}
	return nil
}

// classifyStageResult maps a stage's returned error onto a StageError and result.
func classifyStageResult(stage StageName, err error) (*StageError, StageResult) {
	if err == nil {
		return nil, StageResultSuccess
	}
	var se *StageError
	if !errors.As(err, &se) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			se = NewCanceledStageError(stage, err)
		} else {
			se = NewFatalStageError(stage, err)
		}
	}
	switch se.Kind {
	case StageErrorWarning:
		return se, StageResultWarning
	case StageErrorCanceled:
		return se, StageResultCanceled
	default:
		return se, StageResultFatal
	}
}
