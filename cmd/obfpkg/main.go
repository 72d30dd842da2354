package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/obfpkg/cmd/obfpkg/commands"
	"git.home.luguber.info/inful/obfpkg/internal/errors"
	"git.home.luguber.info/inful/obfpkg/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commands.CLI{}
	global := &commands.Global{Context: ctx, Out: os.Stdout}
	parser, err := kong.New(cli,
		kong.Name("obfpkg"),
		kong.Description("Obfuscate a Python package and build its distributions, optionally with a type-stubs companion."),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	if err != nil {
		// Invalid CLI definition.
		panic(err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.NewCLIErrorAdapter(false, slog.Default()).Report(commands.Classify(err))
	}
	global.Logger = slog.Default()

	err = kctx.Run(cli)
	return errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(commands.Classify(err))
}
