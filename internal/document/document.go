// Package document provides the in-memory text buffers the engine lints.
//
// A Document is a mutable, mutex-guarded buffer with a monotonically
// increasing change counter. Linting always operates on an immutable
// Snapshot; staleness is detected by comparing the document's current
// change count against the snapshot's.
package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wharflab/relint/internal/finding"
)

var nextID atomic.Int64

// Document is one open text buffer.
type Document struct {
	id   int64
	path string

	mu          sync.RWMutex
	text        string
	version     int32
	changeCount int64
}

// New creates a document. An empty path marks an unsaved buffer; its
// canonical filename becomes "<untitled N>".
func New(path, text string) *Document {
	return &Document{
		id:   nextID.Add(1),
		path: path,
		text: text,
	}
}

// ID returns the process-unique document id.
func (d *Document) ID() int64 { return d.id }

// Path returns the file path, empty for unsaved buffers.
func (d *Document) Path() string { return d.path }

// Filename returns the canonical filename: the path, or "<untitled N>" for
// unsaved buffers.
func (d *Document) Filename() string {
	if d.path == "" {
		return fmt.Sprintf("<untitled %d>", d.id)
	}
	return d.path
}

// ShortName returns the display name, the basename of the path.
func (d *Document) ShortName() string {
	if d.path == "" {
		return d.Filename()
	}
	return filepath.Base(d.path)
}

// SetText replaces the buffer content and bumps the change counter.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	d.text = text
	d.changeCount++
	d.mu.Unlock()
}

// SetVersion records the host protocol's document version (LSP).
func (d *Document) SetVersion(v int32) {
	d.mu.Lock()
	d.version = v
	d.mu.Unlock()
}

// Version returns the host protocol's document version.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the current buffer content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// ChangeCount returns the number of mutations so far.
func (d *Document) ChangeCount() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.changeCount
}

// Snapshot captures the current content for lint-cycle use.
func (d *Document) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &Snapshot{
		id:          d.id,
		filename:    d.Filename(),
		shortName:   d.ShortName(),
		text:        d.text,
		version:     d.version,
		changeCount: d.changeCount,
	}
}

// ChangedSince reports whether the buffer mutated after the snapshot was
// taken. Hosts close over this to build the engine's staleness predicate.
func (d *Document) ChangedSince(s *Snapshot) bool {
	return d.ChangeCount() != s.changeCount
}

// Snapshot is an immutable view of a document at one change count.
type Snapshot struct {
	id          int64
	filename    string
	shortName   string
	text        string
	version     int32
	changeCount int64
}

// ID returns the owning document's id.
func (s *Snapshot) ID() int64 { return s.id }

// Filename returns the canonical filename at snapshot time.
func (s *Snapshot) Filename() string { return s.filename }

// ShortName returns the display name at snapshot time.
func (s *Snapshot) ShortName() string { return s.shortName }

// Version returns the host protocol's document version at snapshot time.
func (s *Snapshot) Version() int32 { return s.version }

// ChangeCount returns the document change count at snapshot time.
func (s *Snapshot) ChangeCount() int64 { return s.changeCount }

// Text returns the full snapshot content.
func (s *Snapshot) Text() string { return s.text }

// Size returns the content length in bytes.
func (s *Snapshot) Size() int { return len(s.text) }

// Substr returns the text covered by the region, clamped to the content.
func (s *Snapshot) Substr(r finding.Region) string {
	a, b := r.A, r.B
	if a < 0 {
		a = 0
	}
	if b > len(s.text) {
		b = len(s.text)
	}
	if b <= a {
		return ""
	}
	return s.text[a:b]
}

// FullRegion returns the region spanning the whole content.
func (s *Snapshot) FullRegion() finding.Region {
	return finding.Region{A: 0, B: len(s.text)}
}

// RowCol converts a byte offset into zero-based line and column.
func (s *Snapshot) RowCol(offset int) (row, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.text) {
		offset = len(s.text)
	}
	prefix := s.text[:offset]
	row = strings.Count(prefix, "\n")
	col = offset - (strings.LastIndexByte(prefix, '\n') + 1)
	return row, col
}

// TextPoint converts zero-based line and column into a byte offset,
// clamping the column to the line's length and the line to the content.
func (s *Snapshot) TextPoint(row, col int) int {
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	offset := 0
	rest := s.text
	for range row {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return min(offset+len(rest), len(s.text))
		}
		offset += nl + 1
		rest = rest[nl+1:]
	}
	lineLen := len(rest)
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		lineLen = nl
	}
	return offset + min(col, lineLen)
}

// LineRegion returns the region of the line containing the offset,
// excluding the trailing newline.
func (s *Snapshot) LineRegion(offset int) finding.Region {
	row, _ := s.RowCol(offset)
	start := s.TextPoint(row, 0)
	end := start
	if nl := strings.IndexByte(s.text[start:], '\n'); nl >= 0 {
		end = start + nl
	} else {
		end = len(s.text)
	}
	return finding.Region{A: start, B: end}
}
