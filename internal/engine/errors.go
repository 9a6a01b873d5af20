package engine

import "fmt"

// TransientError signals that the linted snapshot went stale mid-analysis
// and the result would be meaningless. The owning job is abandoned without
// delivery; previously shown findings stay untouched until a fresh cycle
// supersedes them.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string {
	if e.Reason == "" {
		return "transient lint failure"
	}
	return e.Reason
}

// Transientf builds a TransientError.
func Transientf(format string, args ...any) error {
	return &TransientError{Reason: fmt.Sprintf(format, args...)}
}

// PermanentError signals that a linter cannot run at all, typically because
// its executable or toolchain is missing. The task yields an empty finding
// list so stale findings are cleared.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	if e.Reason == "" {
		return "permanent lint failure"
	}
	return e.Reason
}

// Permanentf builds a PermanentError.
func Permanentf(format string, args ...any) error {
	return &PermanentError{Reason: fmt.Sprintf(format, args...)}
}
