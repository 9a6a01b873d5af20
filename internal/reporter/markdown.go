package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wharflab/relint/internal/finding"
)

// MarkdownReporter formats findings as concise markdown tables,
// token-efficient and actionable for review comments and agents.
type MarkdownReporter struct {
	writer io.Writer
}

// NewMarkdownReporter creates a new Markdown reporter.
func NewMarkdownReporter(w io.Writer) *MarkdownReporter {
	return &MarkdownReporter{writer: w}
}

// Report implements Reporter.
func (r *MarkdownReporter) Report(findings []*finding.Finding, _ map[string]string, _ Metadata) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintln(r.writer, "**No issues found**")
		return err
	}

	sorted := sortBySeverity(findings)

	fileSet := make(map[string]struct{})
	for _, f := range sorted {
		fileSet[filepath.ToSlash(f.Filename)] = struct{}{}
	}

	if len(fileSet) == 1 {
		var filename string
		for f := range fileSet {
			filename = f
		}
		return r.writeSingleFileTable(sorted, filename)
	}
	return r.writeMultiFileTable(sorted, len(fileSet))
}

// writeSingleFileTable writes a markdown table for findings in one file.
func (r *MarkdownReporter) writeSingleFileTable(sorted []*finding.Finding, filename string) error {
	if _, err := fmt.Fprintf(r.writer, "**%d %s** in `%s`\n\n",
		len(sorted), pluralize(len(sorted), "issue", "issues"), filename); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.writer, "| Line | Linter | Issue |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.writer, "|------|--------|-------|"); err != nil {
		return err
	}
	for _, f := range sorted {
		if _, err := fmt.Fprintf(r.writer, "| %d | %s | %s %s |\n",
			f.Line+1, f.Linter, severityEmoji(f.Tag()), markdownIssue(f)); err != nil {
			return err
		}
	}
	return nil
}

// writeMultiFileTable writes a markdown table for findings across files.
func (r *MarkdownReporter) writeMultiFileTable(sorted []*finding.Finding, fileCount int) error {
	if _, err := fmt.Fprintf(r.writer, "**%d %s** across %d files\n\n",
		len(sorted), pluralize(len(sorted), "issue", "issues"), fileCount); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.writer, "| File | Line | Linter | Issue |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.writer, "|------|------|--------|-------|"); err != nil {
		return err
	}
	for _, f := range sorted {
		if _, err := fmt.Fprintf(r.writer, "| %s | %d | %s | %s %s |\n",
			filepath.ToSlash(f.Filename), f.Line+1, f.Linter,
			severityEmoji(f.Tag()), markdownIssue(f)); err != nil {
			return err
		}
	}
	return nil
}

func markdownIssue(f *finding.Finding) string {
	msg := escapeMarkdown(f.Message)
	if f.Code != "" {
		return "`" + escapeMarkdown(f.Code) + "` " + msg
	}
	return msg
}

// sortBySeverity sorts findings by severity (errors first), then by file
// and line. Stable, so equal entries keep their order.
func sortBySeverity(findings []*finding.Finding) []*finding.Finding {
	sorted := make([]*finding.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ap, bp := tagPriority(a.Tag()), tagPriority(b.Tag()); ap != bp {
			return ap < bp
		}
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Line < b.Line
	})
	return sorted
}

// tagPriority returns a numeric priority for sorting (lower = more severe).
func tagPriority(tag byte) int {
	switch tag {
	case 'e':
		return 0
	case 'w':
		return 1
	default:
		return 2
	}
}

// severityEmoji returns an emoji indicator for the severity byte.
func severityEmoji(tag byte) string {
	switch tag {
	case 'e':
		return "❌"
	case 'w':
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// escapeMarkdown escapes special markdown characters in table cells.
func escapeMarkdown(s string) string {
	// Pipes break table formatting; newlines break rows.
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

// pluralize returns singular or plural form based on count.
func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
