// Package style resolves display priorities for findings from the
// [[styles]] rules in the configuration. The engine's finalizer queries
// priorities through a function value; it does not own this mapping.
package style

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/wharflab/relint/internal/finding"
)

// Rule matches a subset of findings and assigns them a priority.
// Empty match fields match everything.
type Rule struct {
	// Linter restricts the rule to one linter.
	Linter string
	// Types restricts the rule to the listed error types.
	Types []string
	// Codes restricts the rule to codes matching any of the listed
	// glob patterns (e.g. "E5*").
	Codes []string
	// Priority is assigned to matching findings.
	Priority int
}

func (r Rule) matches(f *finding.Finding) bool {
	if r.Linter != "" && r.Linter != f.Linter {
		return false
	}
	if len(r.Types) > 0 && !contains(r.Types, f.ErrorType) {
		return false
	}
	if len(r.Codes) > 0 && !matchesAny(r.Codes, f.Code) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func matchesAny(patterns []string, code string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, code); err == nil && ok {
			return true
		}
	}
	return false
}

// Rules is an ordered rule list; the first matching rule wins.
type Rules []Rule

// Priority returns the display priority for a finding, 0 when no rule
// matches.
func (rs Rules) Priority(f *finding.Finding) int {
	for _, r := range rs {
		if r.matches(f) {
			return r.Priority
		}
	}
	return 0
}
