package cmd

import (
	stdcontext "context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wharflab/relint/internal/config"
	"github.com/wharflab/relint/internal/discovery"
	"github.com/wharflab/relint/internal/document"
	"github.com/wharflab/relint/internal/engine"
	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/finding"
	"github.com/wharflab/relint/internal/linter"
	"github.com/wharflab/relint/internal/processor"
	"github.com/wharflab/relint/internal/reporter"
	"github.com/wharflab/relint/internal/status"
	"github.com/wharflab/relint/internal/store"
	"github.com/wharflab/relint/internal/style"
	"github.com/wharflab/relint/internal/version"
)

// Exit codes
const (
	ExitSuccess     = 0 // No findings (or below the fail-level threshold)
	ExitFindings    = 1 // Findings at or above fail-level
	ExitConfigError = 2 // Config or usage error
	ExitNoFiles     = 3 // No input file matched any configured linter
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Lint files and report the findings",
		ArgsUsage: "[FILE|DIR|GLOB...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: auto-discover per file)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, sarif, github-actions, markdown",
				Sources: cli.EnvVars("RELINT_FORMAT", "RELINT_OUTPUT_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path: stdout, stderr, or file path",
				Sources: cli.EnvVars("RELINT_OUTPUT_PATH"),
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "Disable colored output",
				Sources: cli.EnvVars("NO_COLOR"),
			},
			&cli.BoolFlag{
				Name:    "show-source",
				Usage:   "Show source code snippets (default: true)",
				Value:   true,
				Sources: cli.EnvVars("RELINT_OUTPUT_SHOW_SOURCE"),
			},
			&cli.BoolFlag{
				Name:  "hide-source",
				Usage: "Hide source code snippets",
			},
			&cli.StringFlag{
				Name:    "fail-level",
				Usage:   "Minimum severity to cause a non-zero exit: error, warning, none",
				Sources: cli.EnvVars("RELINT_OUTPUT_FAIL_LEVEL"),
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Usage:   "Glob pattern to exclude files (can be repeated)",
				Sources: cli.EnvVars("RELINT_EXCLUDE"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Worker pool size (0 = one per CPU)",
				Sources: cli.EnvVars("RELINT_CONCURRENCY"),
			},
		},
		Action: runCheck,
	}
}

func runCheck(_ stdcontext.Context, cmd *cli.Command) error {
	inputs := cmd.Args().Slice()
	if len(inputs) == 0 {
		inputs = []string{"."}
	}

	discovered, err := discovery.Discover(inputs, discovery.Options{
		ExcludePatterns: cmd.StringSlice("exclude"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to discover files: %v\n", err)
		return cli.Exit("", ExitConfigError)
	}
	if len(discovered) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no files found")
		return cli.Exit("", ExitNoFiles)
	}

	log := logrus.StandardLogger()
	bus := event.NewBus()
	results := store.New()
	tracker := status.NewTracker(bus)
	defer tracker.Detach()

	run := newCheckRun()
	eng := engine.New(engine.Options{
		Logger:      log,
		Bus:         bus,
		Priority:    run.priority,
		Concurrency: int(cmd.Int("concurrency")),
	})

	sources := make(map[string]string)
	lintersSeen := make(map[string]struct{})
	filterPatterns := make(map[string][]string)
	matched := 0
	var firstCfg *config.Config

	for _, df := range discovered {
		cfg, err := loadConfigForFile(cmd, df.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config for %s: %v\n", df.Path, err)
			return cli.Exit("", ExitConfigError)
		}
		if firstCfg == nil {
			firstCfg = cfg
		}

		names := cfg.LintersFor(df.Path)
		if len(names) == 0 {
			continue
		}
		matched++

		data, err := os.ReadFile(df.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", df.Path, err)
			return cli.Exit("", ExitConfigError)
		}
		snap := document.New(df.Path, string(data)).Snapshot()
		sources[df.Path] = snap.Text()

		run.setStyles(df.Path, cfg.StyleRules())
		tracker.Assign(df.Path, names)
		for name, lc := range cfg.Linters {
			if len(lc.ErrorFilter) > 0 {
				filterPatterns[name] = append(filterPatterns[name], lc.ErrorFilter...)
			}
		}

		infos := make([]engine.LinterInfo, 0, len(names))
		for _, name := range names {
			lintersSeen[name] = struct{}{}
			lc := cfg.Linters[name]
			filename := df.Path
			infos = append(infos, engine.LinterInfo{
				Name: name,
				New: func() engine.Linter {
					c, err := linter.New(name, lc, linter.Options{
						Filename:   filename,
						ExtraPaths: cfg.Paths,
						Logger:     log,
						OnFailure:  func() { tracker.Fail(filename, name) },
					})
					if err != nil {
						log.Warnf("linter %s misconfigured: %v", name, err)
						return nil
					}
					return c
				},
				Regions: []finding.Region{snap.FullRegion()},
			})
		}

		filename := df.Path
		eng.Schedule(snap, infos, nil, func(linterName string, findings []*finding.Finding) {
			results.Update(filename, linterName, findings)
			bus.Publish(event.ResultsUpdated, event.Payload{
				Filename: filename,
				Linter:   linterName,
				Findings: findings,
			})
		})
	}

	// Waits for every job and drains pending deliveries.
	eng.Close()

	if matched == 0 {
		fmt.Fprintln(os.Stderr, "Error: no files matched any configured linter")
		return cli.Exit("", ExitNoFiles)
	}

	errorFilter, err := processor.NewErrorFilter(filterPatterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.Exit("", ExitConfigError)
	}
	chain := processor.NewChain(processor.Dedup{}, errorFilter, processor.Sort{})

	var all []*finding.Finding
	for _, file := range results.Files() {
		all = append(all, chain.Run(results.File(file))...)
		if summary := tracker.Summary(file); summary != "" {
			log.Debugf("%s: %s", file, summary)
		}
	}

	outCfg := getOutputConfig(cmd, firstCfg)
	formatType, err := parseOutputFormat(outCfg.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.Exit("", ExitConfigError)
	}

	writer, closeWriter, err := reporter.GetWriter(outCfg.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.Exit("", ExitConfigError)
	}
	defer func() {
		if err := closeWriter(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close output: %v\n", err)
		}
	}()

	opts := reporter.Options{
		Format:      formatType,
		Writer:      writer,
		ShowSource:  outCfg.showSource,
		ToolName:    "relint",
		ToolVersion: version.Version(),
		ToolURI:     "https://github.com/wharflab/relint",
	}
	if cmd.IsSet("no-color") && cmd.Bool("no-color") {
		noColor := false
		opts.Color = &noColor
	}

	rep, err := reporter.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create reporter: %v\n", err)
		return cli.Exit("", ExitConfigError)
	}
	meta := reporter.Metadata{FilesScanned: matched, LintersRun: len(lintersSeen)}
	if err := rep.Report(all, sources, meta); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write output: %v\n", err)
		return cli.Exit("", ExitConfigError)
	}

	if code := determineExitCode(all, outCfg.failLevel); code != ExitSuccess {
		return cli.Exit("", code)
	}
	return nil
}

// checkRun holds the per-file style rules the engine's finalizer queries
// while jobs are in flight.
type checkRun struct {
	mu     sync.RWMutex
	styles map[string]style.Rules
}

func newCheckRun() *checkRun {
	return &checkRun{styles: make(map[string]style.Rules)}
}

func (r *checkRun) setStyles(filename string, rules style.Rules) {
	r.mu.Lock()
	r.styles[filename] = rules
	r.mu.Unlock()
}

func (r *checkRun) priority(f *finding.Finding) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.styles[f.Filename].Priority(f)
}

// loadConfigForFile loads configuration for a target file: an explicit
// --config file if given, otherwise cascading discovery from the file's
// directory.
func loadConfigForFile(cmd *cli.Command, targetPath string) (*config.Config, error) {
	if configPath := cmd.String("config"); configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load(targetPath)
}

// outputConfig holds the resolved output settings.
type outputConfig struct {
	format     string
	path       string
	showSource bool
	failLevel  string
}

// getOutputConfig merges output settings: config file values first, CLI
// flags on top.
func getOutputConfig(cmd *cli.Command, cfg *config.Config) outputConfig {
	oc := outputConfig{
		path:       "stdout",
		showSource: true,
		failLevel:  "warning",
	}
	if cfg != nil {
		if cfg.Output.Format != "" {
			oc.format = cfg.Output.Format
		}
		if cfg.Output.Path != "" {
			oc.path = cfg.Output.Path
		}
		oc.showSource = cfg.Output.ShowSource
		if cfg.Output.FailLevel != "" {
			oc.failLevel = cfg.Output.FailLevel
		}
	}

	if cmd.IsSet("format") {
		oc.format = cmd.String("format")
	}
	if cmd.IsSet("output") {
		oc.path = cmd.String("output")
	}
	if cmd.IsSet("show-source") {
		oc.showSource = cmd.Bool("show-source")
	}
	if cmd.IsSet("hide-source") && cmd.Bool("hide-source") {
		oc.showSource = false
	}
	if cmd.IsSet("fail-level") {
		oc.failLevel = cmd.String("fail-level")
	}
	return oc
}

// parseOutputFormat resolves the format string, falling back to the
// environment-aware default when none was requested anywhere.
func parseOutputFormat(format string) (reporter.Format, error) {
	if format == "" {
		return reporter.DefaultFormat(), nil
	}
	return reporter.ParseFormat(format)
}

// determineExitCode maps findings and the fail-level threshold to an exit
// code: "none" never fails, "error" fails on errors only, "warning" fails
// on any finding.
func determineExitCode(findings []*finding.Finding, failLevel string) int {
	switch failLevel {
	case "none":
		return ExitSuccess
	case "error":
		for _, f := range findings {
			if f.IsError() {
				return ExitFindings
			}
		}
		return ExitSuccess
	case "", "warning":
		if len(findings) > 0 {
			return ExitFindings
		}
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid fail-level %q\n", failLevel)
		return ExitConfigError
	}
}
