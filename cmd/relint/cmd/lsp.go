package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wharflab/relint/internal/lspserver"
)

func lspCommand() *cli.Command {
	return &cli.Command{
		Name:  "lsp",
		Usage: "Start the Language Server Protocol server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "stdio",
				Usage: "Use stdin/stdout for communication (required)",
				Value: true,
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Worker pool size (0 = one per CPU)",
				Sources: cli.EnvVars("RELINT_CONCURRENCY"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.Bool("stdio") {
				fmt.Fprintln(os.Stderr, "Error: only --stdio transport is supported")
				return cli.Exit("", ExitConfigError)
			}

			server := lspserver.New(lspserver.Options{
				Logger:      logrus.StandardLogger(),
				Concurrency: int(cmd.Int("concurrency")),
			})
			defer server.Close()
			return server.RunStdio(ctx)
		},
	}
}
