package linter

import (
	"fmt"
	"strings"
)

// CommandError wraps a failure of the linter process itself, as opposed to
// the problems it reports.
//
// It carries a tail of the process stderr to aid diagnostics without
// streaming tool noise into structured output.
type CommandError struct {
	Linter   string
	Err      error
	ExitCode *int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Linter != "" {
		b.WriteString(e.Linter)
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("unknown error")
	}
	if e.ExitCode != nil {
		fmt.Fprintf(&b, " (exit=%d)", *e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("; stderr (tail): ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error { return e.Err }
