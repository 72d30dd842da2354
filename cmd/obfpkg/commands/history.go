package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/obfpkg/internal/errors"
	"git.home.luguber.info/inful/obfpkg/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	DB      string `name:"db" placeholder:"FILE" help:"History database (overrides history.database)"`
	Limit   int    `short:"n" default:"20" help:"Maximum number of builds to list"`
	BuildID string `arg:"" optional:"" name:"build-id" help:"Show the details of one build"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	db := firstNonEmpty(h.DB, cfg.History.Database)
	if db == "" {
		return errors.ConfigError("no history database configured (set history.database or --db)").Build()
	}
	// Opening creates the database; a typo should not leave an empty file behind.
	if _, err := os.Stat(db); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "open history database").
			WithContext("path", db).
			Build()
	}

	store, err := eventstore.NewSQLiteStore(db)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.BuildID != "" {
		summary, found, err := eventstore.LoadBuild(g.ctx(), store, h.BuildID)
		if err != nil {
			return errors.WrapError(err, errors.CategoryEventStore, "read build history").Build()
		}
		if !found {
			return errors.ValidationError(fmt.Sprintf("build %q not found in history", h.BuildID)).Build()
		}
		printBuild(g.out(), summary)
		return nil
	}

	projection := eventstore.NewBuildHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(g.ctx()); err != nil {
		return errors.WrapError(err, errors.CategoryEventStore, "read build history").Build()
	}
	printHistory(g.out(), projection.GetHistory())
	return nil
}

func printHistory(w io.Writer, builds []*eventstore.BuildSummary) {
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(w, "No builds recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tPACKAGE\tVERSION\tDURATION")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.BuildID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Status,
			dash(b.Package),
			dash(b.Version),
			b.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
}

func printBuild(w io.Writer, b *eventstore.BuildSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row(tw, "build", b.BuildID)
	row(tw, "status", b.Status)
	row(tw, "started", b.StartedAt.Local().Format(time.DateTime))
	row(tw, "source", b.Source)
	row(tw, "package", b.Package)
	row(tw, "version", b.Version)
	row(tw, "output", b.Output)
	row(tw, "stubs", b.StubsDir)
	row(tw, "artifacts", strings.Join(b.Artifacts, ", "))
	if b.ErrorMessage != "" {
		row(tw, "failed stage", b.ErrorStage)
		row(tw, "error", b.ErrorMessage)
	}
	_ = tw.Flush()

	if len(b.Stages) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Stages:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range b.Stages {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.Stage, s.Result, s.Duration.Round(time.Millisecond))
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
