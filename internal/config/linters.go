package config

import (
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wharflab/relint/internal/style"
)

// LintersFor returns the names of the enabled linters whose selector
// matches the filename, sorted.
func (c *Config) LintersFor(filename string) []string {
	var names []string
	for name, lc := range c.Linters {
		if lc.Disable {
			continue
		}
		if lc.Matches(filename) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Matches reports whether any selector glob matches the filename. Every
// pattern is tried against the basename, the slash-normalized full path,
// and the full path at any depth, so "*.py", "/abs/src/*.py" and
// "docs/**/*.md" all work.
func (lc LinterConfig) Matches(filename string) bool {
	full := filepath.ToSlash(filename)
	base := filepath.Base(filename)
	for _, pattern := range lc.Selector {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, full); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match("**/"+pattern, full); err == nil && ok {
			return true
		}
	}
	return false
}

// StyleRules compiles the [[styles]] tables into the priority rules the
// finalizer queries.
func (c *Config) StyleRules() style.Rules {
	rules := make(style.Rules, 0, len(c.Styles))
	for _, s := range c.Styles {
		rules = append(rules, style.Rule{
			Linter:   s.Linter,
			Types:    slices.Clone(s.Types),
			Codes:    slices.Clone(s.Codes),
			Priority: s.Priority,
		})
	}
	return rules
}
