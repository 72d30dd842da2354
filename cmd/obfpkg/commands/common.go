package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/obfpkg/internal/config"
	"git.home.luguber.info/inful/obfpkg/internal/errors"
	"git.home.luguber.info/inful/obfpkg/internal/observability"
)

// Global is shared state bound into every command.
type Global struct {
	Logger *slog.Logger
	// Context is canceled on SIGINT/SIGTERM.
	Context context.Context
	// Out receives the user-facing report; defaults to stdout.
	Out io.Writer
}

func (g *Global) ctx() context.Context {
	if g == nil || g.Context == nil {
		return context.Background()
	}
	return g.Context
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"obfpkg.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" default:"withargs" help:"Obfuscate a source tree and package it (default command)"`
	Stubs   StubsCmd   `cmd:"" help:"Generate and package only the type-stubs distribution"`
	Check   CheckCmd   `cmd:"" help:"Validate inputs and print the build plan without changing anything"`
	History HistoryCmd `cmd:"" help:"List builds recorded in the history database"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once. The configured
// level is applied later by loadConfig.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	setupLogging(config.SlogLevel(c.Verbose, ""))
	return nil
}

func setupLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(observability.NewContextHandler(handler))
	slog.SetDefault(logger)
}

// loadConfig reads the configuration file. The default path may be absent;
// an explicitly named file must exist.
func (c *CLI) loadConfig() (*config.Config, error) {
	load, path := config.Load, c.Config
	if path == "" || path == config.DefaultPath {
		load, path = config.LoadOrDefault, config.DefaultPath
	}
	cfg, err := load(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "load config").
			WithContext("path", path).
			Build()
	}
	setupLogging(config.SlogLevel(c.Verbose, cfg.Logging.Level))
	return cfg, nil
}
