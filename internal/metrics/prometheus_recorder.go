package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "obfpkg"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	stageDuration   *prom.HistogramVec
	buildDuration   prom.Histogram
	stageResults    *prom.CounterVec
	buildOutcome    *prom.CounterVec
	toolDuration    *prom.HistogramVec
	renameRetries   prom.Counter
	renameExhausted prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total pipeline duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Pipeline outcomes by final status",
	}, []string{"outcome"})
	pr.toolDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "tool_duration_seconds",
		Help:      "Duration of external tool invocations",
		Buckets:   prom.DefBuckets,
	}, []string{"tool", "result"})
	pr.renameRetries = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stubs_rename_retries_total",
		Help:      "Retries of the stubs directory rename",
	})
	pr.renameExhausted = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stubs_rename_exhausted_total",
		Help:      "Stubs renames that failed after all attempts",
	})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.toolDuration, pr.renameRetries, pr.renameExhausted)
	return pr
}

// Registry returns the registry the recorder's collectors live in.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// WriteTextfile writes the current metric values to path in the text
// exposition format used by the node_exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveToolDuration(tool string, d time.Duration, success bool) {
	if p == nil || p.toolDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.toolDuration.WithLabelValues(tool, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRenameRetry() {
	if p == nil || p.renameRetries == nil {
		return
	}
	p.renameRetries.Inc()
}

func (p *PrometheusRecorder) IncRenameExhausted() {
	if p == nil || p.renameExhausted == nil {
		return
	}
	p.renameExhausted.Inc()
}
