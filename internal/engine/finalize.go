package engine

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/wharflab/relint/internal/finding"
)

// finalize normalizes raw findings from one task in place.
//
// Findings that belong to the linted document itself get their coordinates
// remapped from region-local to document space. Findings about other files
// (includes, virtual sub-documents) keep the coordinates the linter
// reported. Every finding is stamped with the producing linter, its
// identity hash and its display priority.
func (e *Engine) finalize(jb *job, found []*finding.Finding, off Offsets) {
	docName := jb.doc.Filename()
	eof := jb.doc.Size()

	for _, f := range found {
		if sameFile(f.Filename, docName) {
			if f.Line == 0 {
				f.Start += off.Col
			}
			f.Line += off.Line
			f.Region = f.Region.Shift(off.Point)

			// An empty region away from end-of-document is a point
			// location that should render as a one-character span.
			if f.Region.Empty() && f.Region.A != eof {
				f.Region.B = f.Region.A + runeLen(jb.doc, f.Region.A)
				f.OffendingText = jb.doc.Substr(f.Region)
			}
		}

		f.Linter = jb.name
		f.UID = f.ComputeUID()
		f.Priority = e.priority(f)
	}
}

// sameFile compares canonical filenames, case-insensitively so findings
// survive filesystems that fold case.
func sameFile(a, b string) bool {
	if a == b {
		return true
	}
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

// runeLen returns the byte length of the rune starting at offset, so the
// widened span never splits a multi-byte rune.
func runeLen(doc Document, offset int) int {
	window := doc.Substr(finding.Region{A: offset, B: offset + utf8.UTFMax})
	if window == "" {
		return 1
	}
	_, size := utf8.DecodeRuneInString(window)
	if size <= 0 {
		return 1
	}
	return size
}
