// Package cmd implements the relint command-line interface.
package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wharflab/relint/internal/version"
)

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "relint",
		Usage:   "Run external linters over your files, concurrently",
		Version: version.Version(),
		Description: `relint runs the lint tools you already use (flake8, eslint, shellcheck, ...)
against your files on a concurrent scheduling engine, normalizes their
output, and reports the results in one place.

Examples:
  relint check app.py
  relint check --format json src/
  relint init
  relint lsp --stdio`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("RELINT_VERBOSE"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// Logs go to stderr so they never mix with report output (or the
			// LSP transport on stdout).
			logrus.SetOutput(os.Stderr)
			if cmd.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			checkCommand(),
			lspCommand(),
			initCommand(),
			versionCommand(),
		},
	}
}

// Execute runs the CLI application.
func Execute() error {
	return NewApp().Run(context.Background(), os.Args)
}
