// Package metrics provides pipeline metrics for obfpkg.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder. A PrometheusRecorder collects stage, tool and rename metrics
// into its own registry; since obfpkg is a one-shot CLI, the values are
// flushed to a node_exporter textfile at the end of a run instead of being
// served over HTTP.
package metrics
