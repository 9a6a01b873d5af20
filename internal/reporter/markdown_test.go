package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wharflab/relint/internal/finding"
)

func TestMarkdownReporterSingleFile(t *testing.T) {
	var buf bytes.Buffer
	r := NewMarkdownReporter(&buf)

	if err := r.Report(testFindings(), nil, Metadata{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "**2 issues** in `app.py`") {
		t.Errorf("missing summary line:\n%s", out)
	}
	if !strings.Contains(out, "| Line | Linter | Issue |") {
		t.Errorf("missing table header:\n%s", out)
	}
	// Errors sort ahead of warnings regardless of line order.
	errIdx := strings.Index(out, "F821")
	warnIdx := strings.Index(out, "E501")
	if errIdx < 0 || warnIdx < 0 || errIdx > warnIdx {
		t.Errorf("severity ordering wrong:\n%s", out)
	}
	// Lines print 1-based.
	if !strings.Contains(out, "| 5 | flake8 |") {
		t.Errorf("missing 1-based line cell:\n%s", out)
	}
}

func TestMarkdownReporterMultiFile(t *testing.T) {
	fs := testFindings()
	fs = append(fs, &finding.Finding{
		Filename:  "lib.py",
		Line:      0,
		ErrorType: finding.TypeWarning,
		Message:   "unused import",
		Linter:    "flake8",
	})
	var buf bytes.Buffer
	if err := NewMarkdownReporter(&buf).Report(fs, nil, Metadata{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "**3 issues** across 2 files") {
		t.Errorf("missing multi-file summary:\n%s", out)
	}
	if !strings.Contains(out, "| File | Line | Linter | Issue |") {
		t.Errorf("missing table header:\n%s", out)
	}
	if !strings.Contains(out, "| lib.py |") {
		t.Errorf("missing file column:\n%s", out)
	}
}

func TestMarkdownReporterEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMarkdownReporter(&buf).Report(nil, nil, Metadata{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if got := buf.String(); got != "**No issues found**\n" {
		t.Errorf("empty report = %q", got)
	}
}

func TestMarkdownEscaping(t *testing.T) {
	fs := []*finding.Finding{{
		Filename:  "a.py",
		ErrorType: finding.TypeError,
		Message:   "bad | pipe\nand newline",
		Linter:    "demo",
	}}
	var buf bytes.Buffer
	if err := NewMarkdownReporter(&buf).Report(fs, nil, Metadata{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if !strings.Contains(buf.String(), `bad \| pipe and newline`) {
		t.Errorf("cell not escaped:\n%s", buf.String())
	}
}
