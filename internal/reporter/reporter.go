// Package reporter provides output formatters for lint results.
//
// The package supports multiple output formats:
//   - text: Human-readable terminal output with colors and syntax highlighting
//   - json: Machine-readable JSON output
//   - sarif: Static Analysis Results Interchange Format for CI/CD integration
//   - github-actions: Native GitHub Actions workflow annotations
//   - markdown: Concise markdown tables
package reporter

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gkampitakis/ciinfo"

	"github.com/wharflab/relint/internal/finding"
)

// Metadata contains contextual information about the lint run.
type Metadata struct {
	// FilesScanned is the total number of files that were scanned.
	FilesScanned int
	// LintersRun is the number of distinct linters that ran.
	LintersRun int
}

// Reporter formats and outputs lint findings.
type Reporter interface {
	// Report writes findings to the configured output. The sources map
	// provides document text by filename for snippet rendering.
	Report(findings []*finding.Finding, sources map[string]string, meta Metadata) error
}

// Format represents an output format type.
type Format string

const (
	// FormatText is human-readable terminal output.
	FormatText Format = "text"
	// FormatJSON is machine-readable JSON output.
	FormatJSON Format = "json"
	// FormatSARIF is Static Analysis Results Interchange Format.
	FormatSARIF Format = "sarif"
	// FormatGitHubActions is GitHub Actions workflow command output.
	FormatGitHubActions Format = "github-actions"
	// FormatMarkdown is concise markdown tables.
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format string into a Format type.
// Returns an error if the format is unknown.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	case "github-actions", "github":
		return FormatGitHubActions, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format: %q (valid: text, json, sarif, github-actions, markdown)", s)
	}
}

// DefaultFormat picks the format used when the user requested none:
// GitHub Actions annotations on GitHub CI, text everywhere else.
func DefaultFormat() Format {
	if ciinfo.IsCI && os.Getenv("GITHUB_ACTIONS") != "" {
		return FormatGitHubActions
	}
	return FormatText
}

// Options configures reporter creation.
type Options struct {
	// Format specifies the output format.
	Format Format

	// Writer is the output destination.
	Writer io.Writer

	// Color enables/disables colored output (text format only).
	// nil means auto-detect.
	Color *bool

	// ShowSource enables source code snippets (text format only).
	ShowSource bool

	// ToolVersion is included in SARIF output.
	ToolVersion string

	// ToolName is the tool name for SARIF output.
	ToolName string

	// ToolURI is the tool information URI for SARIF output.
	ToolURI string
}

// DefaultOptions returns sensible defaults for reporter options.
func DefaultOptions() Options {
	return Options{
		Format:      FormatText,
		Writer:      os.Stdout,
		Color:       nil, // auto-detect
		ShowSource:  true,
		ToolName:    "relint",
		ToolURI:     "https://github.com/wharflab/relint",
		ToolVersion: "dev",
	}
}

// New creates a reporter based on the format specified in options.
func New(opts Options) (Reporter, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch opts.Format {
	case FormatText, "":
		return newTextReporter(opts.Writer, TextOptions{
			Color: opts.Color,
			// Highlight when color is auto-detected (nil) or explicitly on.
			SyntaxHighlight: opts.Color == nil || *opts.Color,
			ShowSource:      opts.ShowSource,
		}), nil

	case FormatJSON:
		return NewJSONReporter(opts.Writer), nil

	case FormatSARIF:
		return NewSARIFReporter(opts.Writer, opts.ToolName, opts.ToolVersion, opts.ToolURI), nil

	case FormatGitHubActions:
		return NewGitHubActionsReporter(opts.Writer), nil

	case FormatMarkdown:
		return NewMarkdownReporter(opts.Writer), nil

	default:
		return nil, fmt.Errorf("unknown format: %q", opts.Format)
	}
}

// GetWriter returns an io.Writer for the given output path.
// Supports "stdout", "stderr", or file paths.
func GetWriter(path string) (io.Writer, func() error, error) {
	switch path {
	case "stdout", "":
		return os.Stdout, func() error { return nil }, nil
	case "stderr":
		return os.Stderr, func() error { return nil }, nil
	default:
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return f, f.Close, nil
	}
}

// sortedByFile returns a copy sorted by filename, then document position,
// then linter and code, for deterministic output.
func sortedByFile(findings []*finding.Finding) []*finding.Finding {
	sorted := make([]*finding.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Linter != b.Linter {
			return a.Linter < b.Linter
		}
		return a.Code < b.Code
	})
	return sorted
}

// severityLabel renders the display label for a finding's severity byte.
func severityLabel(f *finding.Finding) string {
	switch f.Tag() {
	case 'e':
		return "error"
	case 'w':
		return "warning"
	default:
		if f.ErrorType != "" {
			return f.ErrorType
		}
		return "problem"
	}
}
