package commands

import (
	"fmt"

	"git.home.luguber.info/inful/obfpkg/internal/pipeline"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Src       ExistingDirFlag `short:"s" required:"" placeholder:"SRC_PKG_DIR" help:"Project directory containing the package to obfuscate"`
	OutputDir OutputDirFlag   `short:"o" name:"output-dir" placeholder:"DIR" help:"Directory that would receive the distributions"`
	StubsDir  ExistingDirFlag `short:"t" name:"stubs-dir" placeholder:"DIR" help:"Stubs project"`
	Package   string          `short:"p" help:"Package to obfuscate when the source tree holds more than one"`
	StubsOnly bool            `name:"stubs-only" help:"Plan a stubs-only run"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	opts := pipeline.Options{
		Source:    string(c.Src),
		OutputDir: string(c.OutputDir),
		StubsDir:  string(c.StubsDir),
		Package:   c.Package,
		Verbose:   root.Verbose,
		StubsOnly: c.StubsOnly,
	}
	res, err := pipeline.NewCoordinator(cfg).Check(g.ctx(), opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Plan for %s\n", res.Source)
	printPlan(g.out(), res)
	return nil
}
