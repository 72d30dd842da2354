package metrics

import (
	"testing"
	"time"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("generate_stubs", time.Second)
	r.ObserveBuildDuration(time.Second)
	r.IncStageResult("generate_stubs", ResultSuccess)
	r.IncBuildOutcome(OutcomeSuccess)
	r.ObserveToolDuration("stubgen", time.Second, true)
	r.IncRenameRetry()
	r.IncRenameExhausted()
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopRecorder); !ok {
		t.Fatalf("expected NoopRecorder for nil input")
	}
	pr := NewPrometheusRecorder(nil)
	if OrNoop(pr) != Recorder(pr) {
		t.Fatalf("expected recorder to be passed through")
	}
}
