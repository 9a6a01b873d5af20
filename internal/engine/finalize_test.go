package engine

import (
	"testing"

	"github.com/wharflab/relint/internal/finding"
)

func finalizeTestEngine(t *testing.T, priority func(*finding.Finding) int) *Engine {
	t.Helper()
	e, _ := newTestEngine(t, Options{Priority: priority})
	return e
}

func TestFinalizeZeroOffsetsIsIdempotent(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("one\ntwo\nthree\n")
	jb := &job{name: "flake8", doc: doc}

	f := &finding.Finding{
		Filename:  doc.Filename(),
		Line:      1,
		Start:     2,
		Region:    finding.Region{A: 6, B: 7},
		ErrorType: finding.TypeError,
		Message:   "bad",
	}
	e.finalize(jb, []*finding.Finding{f}, Offsets{})

	if f.Line != 1 || f.Start != 2 {
		t.Errorf("zero offsets must not move the finding, got line=%d start=%d", f.Line, f.Start)
	}
	if f.Region != (finding.Region{A: 6, B: 7}) {
		t.Errorf("zero offsets must not shift the region, got %v", f.Region)
	}
	if f.Linter != "flake8" {
		t.Errorf("expected linter assigned, got %q", f.Linter)
	}
	if f.UID == "" {
		t.Error("expected uid assigned")
	}
}

func TestFinalizeRemapsOffsets(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("line0\nline1\nline2\nline3\nline4\nline5\nline6\n")
	jb := &job{name: "flake8", doc: doc}
	off := Offsets{Line: 5, Col: 7, Point: 100}

	onFirstLine := &finding.Finding{
		Filename: doc.Filename(),
		Line:     0,
		Start:    2,
		Region:   finding.Region{A: 2, B: 4},
	}
	onLaterLine := &finding.Finding{
		Filename: doc.Filename(),
		Line:     1,
		Start:    2,
		Region:   finding.Region{A: 8, B: 9},
	}
	e.finalize(jb, []*finding.Finding{onFirstLine, onLaterLine}, off)

	if onFirstLine.Line != 5 || onFirstLine.Start != 9 {
		t.Errorf("first-line finding: got line=%d start=%d, want line=5 start=9", onFirstLine.Line, onFirstLine.Start)
	}
	if onFirstLine.Region != (finding.Region{A: 102, B: 104}) {
		t.Errorf("first-line region = %v, want [102,104)", onFirstLine.Region)
	}

	// The column offset only applies to findings on the region's first line.
	if onLaterLine.Line != 6 || onLaterLine.Start != 2 {
		t.Errorf("later-line finding: got line=%d start=%d, want line=6 start=2", onLaterLine.Line, onLaterLine.Start)
	}
	if onLaterLine.Region != (finding.Region{A: 108, B: 109}) {
		t.Errorf("later-line region = %v, want [108,109)", onLaterLine.Region)
	}
}

func TestFinalizeLeavesOtherFilesUnshifted(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("text")
	jb := &job{name: "mypy", doc: doc}

	f := &finding.Finding{
		Filename: "/src/imported.py",
		Line:     3,
		Start:    1,
		Region:   finding.Region{A: 10, B: 12},
	}
	e.finalize(jb, []*finding.Finding{f}, Offsets{Line: 5, Col: 7, Point: 100})

	if f.Line != 3 || f.Start != 1 || f.Region != (finding.Region{A: 10, B: 12}) {
		t.Errorf("other-file finding must keep its coordinates, got line=%d start=%d region=%v", f.Line, f.Start, f.Region)
	}
	if f.Linter != "mypy" || f.UID == "" {
		t.Errorf("other-file finding still gets identity, got linter=%q uid=%q", f.Linter, f.UID)
	}
}

func TestFinalizeFilenameComparisonIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("text")
	jb := &job{name: "flake8", doc: doc}

	f := &finding.Finding{Filename: "/SRC/APP.PY", Line: 1}
	e.finalize(jb, []*finding.Finding{f}, Offsets{Line: 4})

	if f.Line != 5 {
		t.Errorf("case-folded filename must count as the main file, got line=%d", f.Line)
	}
}

func TestFinalizeWidensEmptyRegion(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("héllo")
	jb := &job{name: "flake8", doc: doc}

	f := &finding.Finding{
		Filename: doc.Filename(),
		Region:   finding.Region{A: 1, B: 1},
	}
	e.finalize(jb, []*finding.Finding{f}, Offsets{})

	// The span widens by one character, not one byte.
	if f.Region != (finding.Region{A: 1, B: 3}) {
		t.Errorf("region = %v, want [1,3) covering the two-byte rune", f.Region)
	}
	if f.OffendingText != "é" {
		t.Errorf("offending text = %q, want %q", f.OffendingText, "é")
	}
}

func TestFinalizeKeepsEmptyRegionAtEOF(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("ab")
	jb := &job{name: "flake8", doc: doc}

	f := &finding.Finding{
		Filename: doc.Filename(),
		Region:   finding.Region{A: 2, B: 2},
	}
	e.finalize(jb, []*finding.Finding{f}, Offsets{})

	if f.Region != (finding.Region{A: 2, B: 2}) {
		t.Errorf("empty region at end-of-document must stay, got %v", f.Region)
	}
	if f.OffendingText != "" {
		t.Errorf("offending text must stay empty, got %q", f.OffendingText)
	}
}

func TestFinalizeUIDUsesRemappedCoordinates(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, nil)
	doc := snapshotDoc("text\nmore\n")
	jb := &job{name: "flake8", doc: doc}

	f := &finding.Finding{
		Filename:  doc.Filename(),
		Line:      0,
		Start:     1,
		ErrorType: finding.TypeError,
		Code:      "E1",
		Message:   "m",
	}
	e.finalize(jb, []*finding.Finding{f}, Offsets{Line: 2, Col: 3})

	want := (&finding.Finding{
		Filename:  doc.Filename(),
		Line:      2,
		Start:     4,
		ErrorType: finding.TypeError,
		Code:      "E1",
		Message:   "m",
		Linter:    "flake8",
	}).ComputeUID()
	if f.UID != want {
		t.Errorf("uid must hash the remapped coordinates")
	}
}

func TestFinalizeAssignsPriority(t *testing.T) {
	t.Parallel()
	e := finalizeTestEngine(t, func(f *finding.Finding) int {
		if f.Code == "E501" {
			return 7
		}
		return 0
	})
	doc := snapshotDoc("text")
	jb := &job{name: "flake8", doc: doc}

	high := &finding.Finding{Filename: doc.Filename(), Code: "E501"}
	low := &finding.Finding{Filename: doc.Filename(), Code: "W100"}
	e.finalize(jb, []*finding.Finding{high, low}, Offsets{})

	if high.Priority != 7 {
		t.Errorf("priority = %d, want 7", high.Priority)
	}
	if low.Priority != 0 {
		t.Errorf("priority = %d, want 0", low.Priority)
	}
}
