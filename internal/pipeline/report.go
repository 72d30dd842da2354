package pipeline

import (
	"time"

	"git.home.luguber.info/inful/obfpkg/internal/metrics"
	"git.home.luguber.info/inful/obfpkg/internal/versioning"
)

// Outcome is the final status of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Report summarizes one run. It is returned even when the run fails.
type Report struct {
	BuildID   string
	Source    string
	Package   string
	OutputDir string
	StubsDir  string // final stubs package directory, when stubs were generated
	Version   versioning.Stamp

	// ManifestAdded maps each augmented manifest path to the directives appended to it.
	ManifestAdded map[string][]string
	// Overlaid lists hand-written stubs copied over generated ones.
	Overlaid      []string
	StubArtifacts []string
	Artifacts     []string

	StageDurations map[StageName]time.Duration
	StageResults   map[StageName]StageResult
	Warnings       []string

	Outcome  Outcome
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

func newReport(buildID string) *Report {
	return &Report{
		BuildID:        buildID,
		ManifestAdded:  make(map[string][]string),
		StageDurations: make(map[StageName]time.Duration),
		StageResults:   make(map[StageName]StageResult),
		Start:          time.Now(),
	}
}

// RecordStageResult stores the result and forwards it to the recorder.
func (r *Report) RecordStageResult(stage StageName, res StageResult, rec metrics.Recorder) {
	r.StageResults[stage] = res
	rec.IncStageResult(string(stage), metrics.ResultLabel(res))
}

func (r *Report) finish(outcome Outcome) {
	r.Outcome = outcome
	r.End = time.Now()
	r.Duration = r.End.Sub(r.Start)
}

func (o Outcome) label() metrics.BuildOutcomeLabel {
	switch o {
	case OutcomeSuccess:
		return metrics.OutcomeSuccess
	case OutcomeCanceled:
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}
