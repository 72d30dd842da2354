package commands

import (
	"git.home.luguber.info/inful/obfpkg/internal/pipeline"
)

// StubsCmd implements the 'stubs' command: only the type-stubs distribution
// is generated and assembled.
type StubsCmd struct {
	Src         ExistingDirFlag `short:"s" required:"" placeholder:"SRC_PKG_DIR" help:"Project directory containing the package"`
	StubsDir    ExistingDirFlag `short:"t" name:"stubs-dir" required:"" placeholder:"DIR" help:"Stubs project receiving the generated stubs"`
	OutputDir   OutputDirFlag   `short:"o" name:"output-dir" placeholder:"DIR" help:"Directory receiving the built distribution (default <src>/../dist)"`
	Package     string          `short:"p" help:"Package to generate stubs for when the source tree holds more than one"`
	NoOverlay   bool            `name:"no-overlay" help:"Do not copy hand-written stubs from the source tree over generated ones"`
	MetricsFile string          `name:"metrics-file" placeholder:"FILE" help:"Write Prometheus metrics to this textfile"`
	HistoryDB   string          `name:"history-db" placeholder:"FILE" help:"Record the run in this sqlite database"`
}

func (s *StubsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(cfg, s.MetricsFile, s.HistoryDB)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := pipeline.Options{
		Source:    string(s.Src),
		OutputDir: string(s.OutputDir),
		StubsDir:  string(s.StubsDir),
		Package:   s.Package,
		NoOverlay: s.NoOverlay,
		Verbose:   root.Verbose,
		StubsOnly: true,
	}
	return RunBuild(g.ctx(), g.out(), pipeline.NewCoordinator(cfg, svc.options()...), opts)
}
