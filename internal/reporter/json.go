package reporter

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/wharflab/relint/internal/finding"
)

// JSONOutput is the top-level structure for JSON output.
type JSONOutput struct {
	// Files contains results grouped by file.
	Files []FileResult `json:"files"`
	// Summary contains aggregate statistics.
	Summary Summary `json:"summary"`
	// FilesScanned is the total number of files scanned.
	FilesScanned int `json:"files_scanned"`
	// LintersRun is the number of distinct linters that ran.
	LintersRun int `json:"linters_run"`
}

// FileResult contains the lint results for a single file.
type FileResult struct {
	File     string             `json:"file"`
	Findings []*finding.Finding `json:"findings"`
}

// Summary contains aggregate statistics about findings.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Other    int `json:"other"`
	Files    int `json:"files"`
}

// JSONReporter formats findings as JSON output.
type JSONReporter struct {
	writer io.Writer
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

// Report implements Reporter.
func (r *JSONReporter) Report(findings []*finding.Finding, _ map[string]string, meta Metadata) error {
	// Group findings by file in deterministic order, with paths normalized
	// to forward slashes for cross-platform consistency.
	byFile := make(map[string][]*finding.Finding)
	filesOrder := make([]string, 0)

	for _, f := range sortedByFile(findings) {
		clone := *f
		clone.Filename = filepath.ToSlash(clone.Filename)
		if _, exists := byFile[clone.Filename]; !exists {
			filesOrder = append(filesOrder, clone.Filename)
		}
		byFile[clone.Filename] = append(byFile[clone.Filename], &clone)
	}

	output := JSONOutput{
		Files:        make([]FileResult, 0, len(filesOrder)),
		Summary:      calculateSummary(findings, len(filesOrder)),
		FilesScanned: meta.FilesScanned,
		LintersRun:   meta.LintersRun,
	}
	for _, file := range filesOrder {
		output.Files = append(output.Files, FileResult{File: file, Findings: byFile[file]})
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// calculateSummary computes aggregate statistics from findings.
func calculateSummary(findings []*finding.Finding, fileCount int) Summary {
	summary := Summary{
		Total: len(findings),
		Files: fileCount,
	}
	for _, f := range findings {
		switch f.Tag() {
		case 'e':
			summary.Errors++
		case 'w':
			summary.Warnings++
		default:
			summary.Other++
		}
	}
	return summary
}
