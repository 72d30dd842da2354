package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("obfuscate", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("obfuscate", ResultSuccess)
	pr.IncBuildOutcome(OutcomeSuccess)
	pr.ObserveToolDuration("pyarmor", 20*time.Millisecond, false)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
	if got := counterValue(t, reg, "obfpkg_stage_results_total"); got != 1 {
		t.Fatalf("stage results = %v, want 1", got)
	}
}

func TestPrometheusRecorder_RenameCounters(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncRenameRetry()
	pr.IncRenameRetry()
	pr.IncRenameExhausted()

	if got := counterValue(t, pr.Registry(), "obfpkg_stubs_rename_retries_total"); got != 2 {
		t.Fatalf("rename retries = %v, want 2", got)
	}
	if got := counterValue(t, pr.Registry(), "obfpkg_stubs_rename_exhausted_total"); got != 1 {
		t.Fatalf("rename exhausted = %v, want 1", got)
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("x", time.Second)
	pr.IncBuildOutcome(OutcomeFailed)
	pr.IncRenameRetry()
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(OutcomeFailed)

	path := filepath.Join(t.TempDir(), "obfpkg.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `obfpkg_build_outcomes_total{outcome="failed"} 1`) {
		t.Fatalf("textfile missing outcome counter:\n%s", data)
	}
}

func TestPrometheusRecorder_WriteTextfileError(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	if err := pr.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func counterValue(t *testing.T, reg *prom.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
