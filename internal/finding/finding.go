// Package finding defines the normalized problem record produced by linters
// and consumed by every downstream surface (stores, reporters, diagnostics).
package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"
)

// Region is a half-open [A, B) span of absolute byte offsets in a document.
// A region with A == B is a point.
type Region struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewRegion returns a normalized region with A <= B.
func NewRegion(a, b int) Region {
	if b < a {
		a, b = b, a
	}
	return Region{A: a, B: b}
}

// Empty reports whether the region covers no text.
func (r Region) Empty() bool {
	return r.B <= r.A
}

// Len returns the number of bytes covered.
func (r Region) Len() int {
	if r.Empty() {
		return 0
	}
	return r.B - r.A
}

// Contains reports whether the point lies inside the region, ends included.
func (r Region) Contains(pt int) bool {
	return r.A <= pt && pt <= r.B
}

// Shift returns the region moved by delta.
func (r Region) Shift(delta int) Region {
	return Region{A: r.A + delta, B: r.B + delta}
}

// Finding represents a single normalized problem reported by a linter.
//
// A linter fills Filename, Line, Start, Region, ErrorType, Code, Message and
// OffendingText in the coordinates of the text slice it was handed; the
// engine's finalizer remaps coordinates into the real document and assigns
// Linter, UID and Priority.
type Finding struct {
	// Filename is the file the finding belongs to. It may differ from the
	// linted document's own file for embedded or included sub-documents.
	Filename string `json:"filename"`

	// Line and Start are the zero-based line and column of the finding.
	Line  int `json:"line"`
	Start int `json:"start"`

	// Region is the affected span in absolute document offsets.
	Region Region `json:"region"`

	// OffendingText is the literal substring the finding refers to.
	OffendingText string `json:"offendingText,omitempty"`

	// ErrorType is a short code whose first byte classifies severity,
	// "error" or "warning" for ordinary linters.
	ErrorType string `json:"errorType"`

	// Code is the tool-specific rule code (e.g. "E501"). Optional.
	Code string `json:"code,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Linter names the producing linter. Assigned by the finalizer.
	Linter string `json:"linter"`

	// UID is a stable identity hash over the seven identity fields.
	// Assigned by the finalizer.
	UID string `json:"uid"`

	// Priority orders overlapping findings for display. Default 0.
	Priority int `json:"priority"`
}

// Error- and warning-type constants used by command linters. Any string
// works as an ErrorType; only its first byte is interpreted.
const (
	TypeError   = "error"
	TypeWarning = "warning"
)

// Tag returns the severity byte of the finding, the first byte of
// ErrorType, or 0 when ErrorType is empty.
func (f *Finding) Tag() byte {
	if f.ErrorType == "" {
		return 0
	}
	return f.ErrorType[0]
}

// IsError reports whether the finding classifies as an error.
func (f *Finding) IsError() bool { return f.Tag() == 'e' }

// IsWarning reports whether the finding classifies as a warning.
func (f *Finding) IsWarning() bool { return f.Tag() == 'w' }

// ComputeUID hashes the fixed identity fields in their fixed order.
// Two findings that agree on all seven fields always share a UID.
func (f *Finding) ComputeUID() string {
	h := sha256.New()
	io.WriteString(h, f.Filename)
	io.WriteString(h, f.Linter)
	io.WriteString(h, strconv.Itoa(f.Line))
	io.WriteString(h, strconv.Itoa(f.Start))
	io.WriteString(h, f.ErrorType)
	io.WriteString(h, f.Code)
	io.WriteString(h, f.Message)
	return hex.EncodeToString(h.Sum(nil))
}

// Sort orders findings by document position, then by linter and code so
// equal positions have a stable order.
func Sort(fs []*Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
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
}

// CountByTag tallies findings per severity byte.
func CountByTag(fs []*Finding) map[byte]int {
	counts := make(map[byte]int)
	for _, f := range fs {
		counts[f.Tag()]++
	}
	return counts
}
