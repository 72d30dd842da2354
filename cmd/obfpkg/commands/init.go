package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g.out(), root.Config, i.Force)
}

func RunInit(w io.Writer, configPath string, force bool) error {
	// Provide friendly user-facing messages on stdout for CLI integration tests.
	_, _ = fmt.Fprintln(w, "Initializing obfpkg project")
	_, _ = fmt.Fprintf(w, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		_, _ = fmt.Fprintln(w, "Initialization failed")
		return errors.WrapError(err, errors.CategoryConfig, "init config").Build()
	}
	_, _ = fmt.Fprintln(w, "initialized successfully")
	return nil
}
