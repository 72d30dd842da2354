package commands

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/obfpkg/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Src         ExistingDirFlag `short:"s" required:"" placeholder:"SRC_PKG_DIR" help:"Project directory containing the package to obfuscate"`
	OutputDir   OutputDirFlag   `short:"o" name:"output-dir" placeholder:"DIR" help:"Directory receiving the built distributions (absent or empty; default <src>/../dist)"`
	StubsDir    ExistingDirFlag `short:"t" name:"stubs-dir" placeholder:"DIR" help:"Stubs project; when set a type-stubs distribution is built as well"`
	Package     string          `short:"p" help:"Package to obfuscate when the source tree holds more than one"`
	NoOverlay   bool            `name:"no-overlay" help:"Do not copy hand-written stubs from the source tree over generated ones"`
	KeepWorkdir bool            `name:"keep-workdir" help:"Keep the temporary working directory for inspection"`
	MetricsFile string          `name:"metrics-file" placeholder:"FILE" help:"Write Prometheus metrics to this textfile (overrides metrics.textfile)"`
	HistoryDB   string          `name:"history-db" placeholder:"FILE" help:"Record the build in this sqlite database (overrides history.database)"`
}

func (b *BuildCmd) options(verbose bool) pipeline.Options {
	return pipeline.Options{
		Source:      string(b.Src),
		OutputDir:   string(b.OutputDir),
		StubsDir:    string(b.StubsDir),
		Package:     b.Package,
		NoOverlay:   b.NoOverlay,
		Verbose:     verbose,
		KeepWorkdir: b.KeepWorkdir,
	}
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(cfg, b.MetricsFile, b.HistoryDB)
	if err != nil {
		return err
	}
	defer svc.Close()

	coord := pipeline.NewCoordinator(cfg, svc.options()...)
	return RunBuild(g.ctx(), g.out(), coord, b.options(root.Verbose))
}

// RunBuild executes one pipeline run and prints its report to w.
func RunBuild(ctx context.Context, w io.Writer, coord *pipeline.Coordinator, opts pipeline.Options) error {
	// Provide friendly user-facing messages on stdout for CLI integration tests.
	if opts.StubsOnly {
		_, _ = fmt.Fprintf(w, "Building stubs package for %s\n", opts.Source)
	} else {
		_, _ = fmt.Fprintf(w, "Building obfuscated package from %s\n", opts.Source)
	}
	report, err := coord.Run(ctx, opts)
	printReport(w, report)
	return err
}
