package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/wharflab/relint/internal/config"
)

// starterConfig is the scaffold `relint init` writes: the defaults plus one
// worked linter table to edit. Field tags mirror the koanf keys Load reads.
type starterConfig struct {
	Delay   string                   `toml:"delay"`
	Output  starterOutput            `toml:"output"`
	Linters map[string]starterLinter `toml:"linters"`
}

type starterOutput struct {
	Format     string `toml:"format"`
	ShowSource bool   `toml:"show-source"`
	FailLevel  string `toml:"fail-level"`
}

type starterLinter struct {
	Command  []string `toml:"command"`
	Selector []string `toml:"selector"`
	Regex    string   `toml:"regex"`
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a starter config file",
		ArgsUsage: "[DIR]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			dir := "."
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}
			path := filepath.Join(dir, config.ConfigFileNames[0])

			if !cmd.Bool("force") {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
					return cli.Exit("", ExitConfigError)
				}
			}

			defaults := config.Default()
			starter := starterConfig{
				Delay: defaults.Delay,
				Output: starterOutput{
					Format:     defaults.Output.Format,
					ShowSource: defaults.Output.ShowSource,
					FailLevel:  defaults.Output.FailLevel,
				},
				Linters: map[string]starterLinter{
					"flake8": {
						Command:  []string{"flake8", "--format", "default", "-"},
						Selector: []string{"*.py"},
						Regex:    `stdin:(?P<line>\d+):(?P<col>\d+): (?P<code>\S+) (?P<message>.*)`,
					},
				},
			}

			data, err := toml.Marshal(starter)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return cli.Exit("", ExitConfigError)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return cli.Exit("", ExitConfigError)
			}

			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}
