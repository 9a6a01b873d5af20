package reporter

import (
	"io"
	"path/filepath"
	"sort"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/wharflab/relint/internal/finding"
)

// Default SARIF tool information.
const (
	defaultToolName = "relint"
	defaultToolURI  = "https://github.com/wharflab/relint"
)

// SARIFReporter formats findings as SARIF (Static Analysis Results
// Interchange Format), widely supported by CI/CD systems including GitHub
// Code Scanning and Azure DevOps.
//
// See: https://docs.oasis-open.org/sarif/sarif/v2.1.0/
type SARIFReporter struct {
	writer      io.Writer
	toolName    string
	toolVersion string
	toolURI     string
}

// NewSARIFReporter creates a new SARIF reporter.
func NewSARIFReporter(w io.Writer, toolName, toolVersion, toolURI string) *SARIFReporter {
	if toolName == "" {
		toolName = defaultToolName
	}
	if toolURI == "" {
		toolURI = defaultToolURI
	}
	return &SARIFReporter{
		writer:      w,
		toolName:    toolName,
		toolVersion: toolVersion,
		toolURI:     toolURI,
	}
}

// ruleID names the SARIF rule for a finding: the tool-specific code when
// the linter reports one, the linter name otherwise.
func ruleID(f *finding.Finding) string {
	if f.Code != "" {
		return f.Code
	}
	return f.Linter
}

// Report implements Reporter.
func (r *SARIFReporter) Report(findings []*finding.Finding, _ map[string]string, _ Metadata) error {
	// v2.1.0 for maximum compatibility.
	report := sarif.NewReport()

	run := sarif.NewRunWithInformationURI(r.toolName, r.toolURI)
	if r.toolVersion != "" {
		run.Tool.Driver.WithVersion(r.toolVersion)
	}

	sorted := sortedByFile(findings)

	// Collect unique rule ids and files.
	ruleSet := make(map[string]*finding.Finding)
	fileSet := make(map[string]struct{})
	for _, f := range sorted {
		id := ruleID(f)
		if _, exists := ruleSet[id]; !exists {
			ruleSet[id] = f
		}
		fileSet[filepath.ToSlash(f.Filename)] = struct{}{}
	}

	ids := make([]string, 0, len(ruleSet))
	for id := range ruleSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rule := run.AddRule(id)
		rule.WithShortDescription(sarif.NewMultiformatMessageString().
			WithText("reported by " + ruleSet[id].Linter))
	}

	files := make([]string, 0, len(fileSet))
	for file := range fileSet {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		run.AddDistinctArtifact(file)
	}

	for _, f := range sorted {
		filePath := filepath.ToSlash(f.Filename)

		result := sarif.NewRuleResult(ruleID(f)).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(tagToSARIFLevel(f.Tag()))

		region := sarif.NewRegion().
			WithStartLine(f.Line + 1).   // SARIF is 1-based
			WithStartColumn(f.Start + 1)
		if f.OffendingText != "" {
			region.WithSnippet(sarif.NewArtifactContent().WithText(f.OffendingText))
		}

		physicalLocation := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewSimpleArtifactLocation(filePath)).
			WithRegion(region)
		result.WithLocations([]*sarif.Location{
			sarif.NewLocationWithPhysicalLocation(physicalLocation),
		})

		run.AddResult(result)
	}

	report.AddRun(run)
	return report.PrettyWrite(r.writer)
}

// SARIF severity levels.
const (
	sarifLevelError   = "error"
	sarifLevelWarning = "warning"
	sarifLevelNote    = "note"
)

// tagToSARIFLevel maps a severity byte to a SARIF level.
// SARIF uses: "error", "warning", "note", "none"
func tagToSARIFLevel(tag byte) string {
	switch tag {
	case 'e':
		return sarifLevelError
	case 'w':
		return sarifLevelWarning
	default:
		return sarifLevelNote
	}
}
