// Package linter runs external lint programs and turns their output into
// findings.
//
// A [Command] adapts one configured tool to the engine's linter capability:
// it feeds the examined text to the program (stdin, temp file, or the file
// on disk), decodes and de-colors the output, and parses it with the
// configured regex. Staleness is checked before spawning and after the
// process exits; a cancelled context kills the whole process group.
package linter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wharflab/relint/internal/config"
	"github.com/wharflab/relint/internal/engine"
	"github.com/wharflab/relint/internal/finding"
)

const (
	stderrTailBytes = 32 * 1024
	terminateGrace  = 250 * time.Millisecond
)

// Options configures a Command beyond its linter table.
type Options struct {
	// Filename is the canonical name of the linted document. Findings
	// without an explicit filename group are attributed to it.
	Filename string

	// WorkDir is the working directory for the process. Empty means the
	// directory of Filename when it is a real path, else the process cwd.
	WorkDir string

	// ExtraPaths are global PATH prepends, after the linter's own.
	ExtraPaths []string

	// Logger receives debug output; defaults to the logrus standard logger.
	Logger logrus.FieldLogger

	// OnFailure is invoked when the engine reports the linter failed.
	OnFailure func()
}

// Command is an external lint program bound to one document. Instances are
// cheap; the engine creates one per job and may call Lint concurrently for
// multiple regions.
type Command struct {
	name      string
	cfg       config.LinterConfig
	filename  string
	workDir   string
	paths     []string
	regex     *regexp.Regexp
	log       logrus.FieldLogger
	onFailure func()
}

// New builds a command linter named name from its configuration table.
func New(name string, cfg config.LinterConfig, opts Options) (*Command, error) {
	var re *regexp.Regexp
	if cfg.Regex != "" {
		var err error
		re, err = regexp.Compile(cfg.Regex)
		if err != nil {
			return nil, fmt.Errorf("linter %s: %w", name, err)
		}
	}

	workDir := opts.WorkDir
	if workDir == "" && filepath.IsAbs(opts.Filename) {
		workDir = filepath.Dir(opts.Filename)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Command{
		name:      name,
		cfg:       cfg,
		filename:  opts.Filename,
		workDir:   workDir,
		paths:     slices.Concat(cfg.Paths, opts.ExtraPaths),
		regex:     re,
		log:       log,
		onFailure: opts.OnFailure,
	}, nil
}

// Name returns the linter's configured name.
func (c *Command) Name() string { return c.name }

// NotifyFailure forwards an engine failure report to the host.
func (c *Command) NotifyFailure() {
	if c.onFailure != nil {
		c.onFailure()
	}
}

// Lint runs the program against code and parses its output into findings.
func (c *Command) Lint(ctx context.Context, code string, changed func() bool) ([]*finding.Finding, error) {
	if changed == nil {
		changed = func() bool { return false }
	}
	if changed() {
		return nil, engine.Transientf("aborting lint of %s, buffer changed", filepath.Base(c.filename))
	}

	exe, err := c.findExecutable()
	if err != nil {
		return nil, err
	}

	run, err := c.run(ctx, exe, code)
	if err != nil {
		return nil, err
	}

	// A result computed against a superseded snapshot must not land.
	if changed() {
		return nil, engine.Transientf("discarding lint of %s, buffer changed", filepath.Base(c.filename))
	}

	return c.parse(code, run.output, run.tempPath), nil
}

type runResult struct {
	output   string
	tempPath string
}

func (c *Command) run(ctx context.Context, exe, code string) (runResult, error) {
	args := slices.Concat(c.cfg.Command[1:], c.cfg.Args)

	var tempPath string
	switch {
	case c.cfg.TempfileSuffix == "-":
		// Lint the file on disk as-is.
		args = append(args, c.filename)
	case c.cfg.TempfileSuffix != "":
		path, cleanup, err := writeTempfile(code, c.cfg.TempfileSuffix)
		if err != nil {
			return runResult{}, &CommandError{Linter: c.name, Err: err}
		}
		defer cleanup()
		tempPath = path
		args = append(args, path)
	}

	cmd := exec.Command(exe, args...)
	cmd.Dir = c.workDir
	cmd.Env = c.environ()
	configureProcessGroup(cmd)

	if tempPath == "" && c.cfg.TempfileSuffix != "-" {
		cmd.Stdin = strings.NewReader(code)
	}

	var stdout bytes.Buffer
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	c.log.Debugf("Running %s: %s %s", c.name, exe, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return runResult{}, &CommandError{Linter: c.name, Err: err}
	}

	// Kill the whole process group when the context goes; escalate after a
	// grace period so a stuck tool cannot outlive its job.
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			_ = killProcessGroup(cmd.Process.Pid, syscall.SIGTERM)
			timer := time.NewTimer(terminateGrace)
			defer timer.Stop()
			select {
			case <-done:
			case <-timer.C:
				_ = killProcessGroup(cmd.Process.Pid, syscall.SIGKILL)
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	if ctx.Err() != nil {
		return runResult{}, ctx.Err()
	}

	exitCode := 0
	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			return runResult{}, &CommandError{Linter: c.name, Err: waitErr, Stderr: stderr.String()}
		}
		exitCode = ee.ExitCode()
	}
	if !c.exitOK(exitCode) {
		return runResult{}, &CommandError{
			Linter:   c.name,
			Err:      fmt.Errorf("exited with code %d", exitCode),
			ExitCode: &exitCode,
			Stderr:   stderr.String(),
		}
	}

	// Most linters report on stdout; some (compilers notably) use stderr.
	// Parse both, stdout first.
	output := decodeOutput(stdout.Bytes())
	if tail := decodeOutput([]byte(stderr.String())); tail != "" {
		if output != "" && !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		output += tail
	}
	return runResult{output: output, tempPath: tempPath}, nil
}

// exitOK reports whether the exit code still means "output is usable".
// Most linters exit non-zero when they find problems, so 0 and 1 pass by
// default.
func (c *Command) exitOK(code int) bool {
	if len(c.cfg.OKCodes) == 0 {
		return code == 0 || code == 1
	}
	return slices.Contains(c.cfg.OKCodes, code)
}

func (c *Command) environ() []string {
	env := os.Environ()
	if len(c.paths) > 0 {
		pathList := strings.Join(c.paths, string(os.PathListSeparator))
		if current := os.Getenv("PATH"); current != "" {
			pathList += string(os.PathListSeparator) + current
		}
		// exec keeps the last duplicate entry.
		env = append(env, "PATH="+pathList)
	}
	for k, v := range c.cfg.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// findExecutable resolves the program, searching the configured paths
// before the environment PATH. A linter whose program cannot be found is
// unusable until the configuration changes.
func (c *Command) findExecutable() (string, error) {
	if len(c.cfg.Command) == 0 || c.cfg.Command[0] == "" {
		return "", engine.Permanentf("linter %s has no command configured", c.name)
	}
	name := c.cfg.Command[0]
	if strings.ContainsAny(name, `/\`) {
		if isExecutable(name) {
			return name, nil
		}
		return "", engine.Permanentf("cannot find executable %q for linter %s", name, c.name)
	}
	for _, dir := range c.paths {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", engine.Permanentf("cannot find executable %q for linter %s", name, c.name)
	}
	return path, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}

func writeTempfile(code, suffix string) (string, func(), error) {
	f, err := os.CreateTemp("", "relint-*"+suffix)
	if err != nil {
		return "", nil, fmt.Errorf("tempfile: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.WriteString(code); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("tempfile: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("tempfile: %w", err)
	}
	return path, cleanup, nil
}
