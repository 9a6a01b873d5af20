// Package config provides configuration loading and discovery for relint.
//
// Configuration is loaded from multiple sources with the following priority
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (RELINT_* prefix)
//  3. Config file (closest .relint.toml or relint.toml)
//  4. Built-in defaults
//
// Config file discovery follows a cascading pattern: starting from the
// target file's directory, walk up the filesystem until a config file is
// found. The closest config wins (no merging).
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigFileNames defines the config file names to search for, in priority order.
var ConfigFileNames = []string{".relint.toml", "relint.toml"}

// EnvPrefix is the prefix for environment variables.
const EnvPrefix = "RELINT_"

// Config represents the complete relint configuration.
type Config struct {
	// Delay is extra debounce added on top of the adaptive delay before a
	// relint is scheduled, as a duration string ("100ms", "1s").
	Delay string `json:"delay,omitempty" koanf:"delay"`

	// Concurrency overrides the size of the dispatch and execution pools.
	// Zero means one slot per CPU.
	Concurrency int `json:"concurrency,omitempty" koanf:"concurrency"`

	// Paths lists extra directories prepended to PATH when locating and
	// running linter executables.
	Paths []string `json:"paths,omitempty" koanf:"paths"`

	// Output configures output format and destination.
	Output OutputConfig `json:"output" koanf:"output"`

	// Linters maps a linter name to its invocation and parsing setup.
	Linters map[string]LinterConfig `json:"linters,omitempty" koanf:"linters"`

	// Styles assigns display priorities to matching findings.
	Styles []StyleConfig `json:"styles,omitempty" koanf:"styles"`

	// ConfigFile is the path to the config file that was loaded (if any).
	// This is metadata, not loaded from config.
	ConfigFile string `json:"-" koanf:"-"`
}

// OutputConfig configures output formatting and behavior.
type OutputConfig struct {
	// Format specifies the output format.
	Format string `json:"format,omitempty" koanf:"format"`

	// Path specifies where to write output.
	Path string `json:"path,omitempty" koanf:"path"`

	// ShowSource enables source code snippets in text output.
	ShowSource bool `json:"show-source,omitempty" koanf:"show-source"`

	// FailLevel sets the minimum severity that causes a non-zero exit code:
	// "error", "warning" or "none".
	FailLevel string `json:"fail-level,omitempty" koanf:"fail-level"`
}

// LinterConfig describes one external linter.
//
// Example TOML configuration:
//
//	[linters.flake8]
//	command = ["flake8", "--format", "default", "-"]
//	selector = ["*.py"]
//	regex = 'stdin:(?P<line>\d+):(?P<col>\d+): (?P<code>\S+) (?P<message>.*)'
type LinterConfig struct {
	// Command is the program argv. The document is fed on stdin unless
	// TempfileSuffix says otherwise.
	Command []string `json:"command,omitempty" koanf:"command"`

	// Args are extra arguments appended after Command.
	Args []string `json:"args,omitempty" koanf:"args"`

	// Regex parses program output into findings, using the named groups
	// line, col, end_col, error, warning, code, message, filename, near.
	Regex string `json:"regex,omitempty" koanf:"regex"`

	// Multiline applies Regex across the whole output instead of per line.
	Multiline bool `json:"multiline,omitempty" koanf:"multiline"`

	// Selector globs decide which files the linter applies to. Patterns
	// are tried against both the basename and the slash-normalized full
	// path. An empty selector matches nothing.
	Selector []string `json:"selector,omitempty" koanf:"selector"`

	// Disable turns the linter off without deleting its table.
	Disable bool `json:"disable,omitempty" koanf:"disable"`

	// ErrorFilter drops findings whose rendered text matches any of these
	// regexes.
	ErrorFilter []string `json:"error-filter,omitempty" koanf:"error-filter"`

	// TempfileSuffix switches input passing: empty feeds stdin, a suffix
	// like ".py" writes a temp file, "-" passes the file on disk as-is.
	TempfileSuffix string `json:"tempfile-suffix,omitempty" koanf:"tempfile-suffix"`

	// Env adds environment variables to the linter process.
	Env map[string]string `json:"env,omitempty" koanf:"env"`

	// OKCodes lists exit codes that still mean "output is valid". Empty
	// means {0, 1}, since most linters exit 1 when they find problems.
	OKCodes []int `json:"ok-codes,omitempty" koanf:"ok-codes"`

	// Paths are linter-specific PATH prepends, ahead of the global ones.
	Paths []string `json:"paths,omitempty" koanf:"paths"`
}

// StyleConfig assigns a display priority to findings matched by linter,
// error type and code globs. The first matching style wins.
type StyleConfig struct {
	Linter   string   `json:"linter,omitempty" koanf:"linter"`
	Types    []string `json:"types,omitempty" koanf:"types"`
	Codes    []string `json:"codes,omitempty" koanf:"codes"`
	Priority int      `json:"priority" koanf:"priority"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Delay: "100ms",
		Output: OutputConfig{
			Format:     "text",
			Path:       "stdout",
			ShowSource: true,
			FailLevel:  "warning", // any finding causes exit code 1
		},
	}
}

// DelayDuration parses the configured extra debounce.
func (c *Config) DelayDuration() (time.Duration, error) {
	if c.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Delay)
}

// Load loads configuration for a target file path.
// It discovers the closest config file, loads it, and applies
// environment variable overrides.
func Load(targetPath string) (*Config, error) {
	return loadWithConfigPath(Discover(targetPath))
}

// LoadFromFile loads configuration from a specific config file path.
// Unlike Load, it does not perform config discovery.
func LoadFromFile(configPath string) (*Config, error) {
	return loadWithConfigPath(configPath)
}

// loadWithConfigPath is an internal helper that loads config with an optional config file path.
func loadWithConfigPath(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, err
	}

	// 2. Load config file if provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// 3. Load environment variables (RELINT_* prefix)
	// RELINT_OUTPUT_FAIL_LEVEL -> output.fail-level
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKeyTransform,
	}), nil); err != nil {
		return nil, err
	}

	// 4. Normalize and decode the merged raw config.
	cfg, err := decodeConfig(k.Raw())
	if err != nil {
		return nil, err
	}

	cfg.ConfigFile = configPath
	return cfg, nil
}

// knownHyphenatedKeys maps dot-separated patterns to their hyphenated
// equivalents, so RELINT_OUTPUT_SHOW_SOURCE reaches output.show-source.
var knownHyphenatedKeys = map[string]string{
	"show.source":     "show-source",
	"fail.level":      "fail-level",
	"error.filter":    "error-filter",
	"tempfile.suffix": "tempfile-suffix",
	"ok.codes":        "ok-codes",
}

var allowedEnvTopLevelKeys = map[string]struct{}{
	"delay":       {},
	"concurrency": {},
	"paths":       {},
	"output":      {},
	"linters":     {},
	"styles":      {},
	// Compatibility aliases normalized in normalizeOutputAliases.
	"format":      {},
	"path":        {},
	"show-source": {},
	"fail-level":  {},
}

// envKeyTransform converts environment variable names to config keys.
// RELINT_FORMAT -> format
// RELINT_LINTERS_FLAKE8_MULTILINE -> linters.flake8.multiline
func envKeyTransform(k, v string) (string, any) {
	s := strings.TrimPrefix(k, EnvPrefix)
	// Convert to lowercase and replace _ with . for nesting
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", ".")
	// Fix known hyphenated keys using lookup table
	for pattern, replacement := range knownHyphenatedKeys {
		s = strings.ReplaceAll(s, pattern, replacement)
	}

	topLevel := s
	if before, _, ok := strings.Cut(s, "."); ok {
		topLevel = before
	}
	if _, ok := allowedEnvTopLevelKeys[topLevel]; !ok {
		return "", nil
	}

	return s, v
}

// Discover finds the closest config file for a target file path.
// It walks up the directory tree from the target's directory,
// checking for config files at each level.
// Returns empty string if no config file is found.
func Discover(targetPath string) string {
	// Get absolute path to handle relative paths correctly
	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return ""
	}

	// Start from the target's directory
	dir := filepath.Dir(absPath)

	for {
		// Check each config file name in priority order
		for _, name := range ConfigFileNames {
			configPath := filepath.Join(dir, name)
			if fileExists(configPath) {
				return configPath
			}
		}

		// Move up to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return ""
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
