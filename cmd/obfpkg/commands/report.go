package commands

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/obfpkg/internal/pipeline"
	"git.home.luguber.info/inful/obfpkg/internal/versioning"
)

func printReport(w io.Writer, r *pipeline.Report) {
	if r == nil {
		return
	}
	switch r.Outcome {
	case pipeline.OutcomeSuccess:
		_, _ = fmt.Fprintf(w, "Build %s succeeded in %s\n", r.BuildID, r.Duration.Round(time.Millisecond))
	default:
		_, _ = fmt.Fprintf(w, "Build %s %s after %s\n", r.BuildID, r.Outcome, r.Duration.Round(time.Millisecond))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row(tw, "package", r.Package)
	row(tw, "version", formatStamp(r.Version))
	row(tw, "output", r.OutputDir)
	row(tw, "stubs", r.StubsDir)
	for _, a := range r.Artifacts {
		row(tw, "artifact", a)
	}
	for _, a := range r.StubArtifacts {
		row(tw, "stubs artifact", a)
	}
	for _, path := range sortedKeys(r.ManifestAdded) {
		row(tw, "manifest", fmt.Sprintf("%s (+%d)", path, len(r.ManifestAdded[path])))
	}
	if len(r.Overlaid) > 0 {
		row(tw, "overlaid stubs", fmt.Sprint(len(r.Overlaid)))
	}
	for _, warn := range r.Warnings {
		row(tw, "warning", warn)
	}
	_ = tw.Flush()
}

func printPlan(w io.Writer, res *pipeline.CheckResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row(tw, "source", res.Source)
	row(tw, "package", res.Package)
	row(tw, "version", formatStamp(res.Version))
	row(tw, "output", res.OutputDir)
	row(tw, "stubs", res.StubsDir)
	for _, warn := range res.Warnings {
		row(tw, "warning", warn)
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintln(w, "Stages:")
	for i, s := range res.Stages {
		_, _ = fmt.Fprintf(w, "  %2d. %s\n", i+1, s)
	}
}

// row prints "  key:<tab>value", skipping empty values.
func row(tw *tabwriter.Writer, key, value string) {
	if value == "" {
		return
	}
	_, _ = fmt.Fprintf(tw, "  %s:\t%s\n", key, value)
}

func formatStamp(s versioning.Stamp) string {
	if s.Version == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s)", s.Version, s.Source)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
