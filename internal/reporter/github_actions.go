package reporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wharflab/relint/internal/finding"
)

// GitHubActionsReporter formats findings as GitHub Actions workflow
// commands. These appear as annotations in the GitHub Actions UI.
//
// Format: ::{level} file={file},line={line},col={col}::{message}
//
// See: https://docs.github.com/actions/using-workflows/workflow-commands-for-github-actions#setting-an-error-message
type GitHubActionsReporter struct {
	writer io.Writer
}

// NewGitHubActionsReporter creates a new GitHub Actions reporter.
func NewGitHubActionsReporter(w io.Writer) *GitHubActionsReporter {
	return &GitHubActionsReporter{writer: w}
}

// Report implements Reporter.
func (r *GitHubActionsReporter) Report(findings []*finding.Finding, _ map[string]string, _ Metadata) error {
	for _, f := range sortedByFile(findings) {
		level := tagToGitHubLevel(f.Tag())
		filePath := filepath.ToSlash(f.Filename)

		parts := []string{
			"file=" + escapeGitHubProperty(filePath),
			fmt.Sprintf("line=%d", f.Line+1),  // 1-based
			fmt.Sprintf("col=%d", f.Start+1),  // 1-based
		}
		title := f.Code
		if title == "" {
			title = f.Linter
		}
		parts = append(parts, "title="+escapeGitHubProperty(title))

		if _, err := fmt.Fprintf(r.writer, "::%s %s::%s\n",
			level,
			strings.Join(parts, ","),
			escapeGitHubMessage(f.Message),
		); err != nil {
			return err
		}
	}
	return nil
}

// GitHub Actions annotation levels.
const (
	ghLevelError   = "error"
	ghLevelWarning = "warning"
	ghLevelNotice  = "notice"
)

// tagToGitHubLevel maps a severity byte to a GitHub Actions level.
// GitHub supports: "error", "warning", "notice", "debug"
func tagToGitHubLevel(tag byte) string {
	switch tag {
	case 'e':
		return ghLevelError
	case 'w':
		return ghLevelWarning
	default:
		return ghLevelNotice
	}
}

// escapeGitHubMessage escapes special characters in GitHub Actions workflow
// command messages. Messages use escapeData() rules which escape "%", "\r",
// "\n" but NOT ":" or ",".
// See: https://github.com/actions/toolkit/blob/main/packages/core/src/command.ts
func escapeGitHubMessage(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// escapeGitHubProperty escapes special characters in GitHub Actions workflow
// command properties. Properties (file, title, etc.) use escapeProperty()
// rules which escape "%", "\r", "\n", ":", and ",".
func escapeGitHubProperty(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	s = strings.ReplaceAll(s, ":", "%3A")
	s = strings.ReplaceAll(s, ",", "%2C")
	return s
}
