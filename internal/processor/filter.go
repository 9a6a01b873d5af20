package processor

import (
	"fmt"
	"regexp"

	"github.com/wharflab/relint/internal/finding"
)

// ErrorFilter drops findings whose rendered text matches any of the
// configured per-linter patterns. The rendered form is
// "{error_type}: {code}: {message}", so a pattern can target severity,
// code or message content alike.
type ErrorFilter struct {
	byLinter map[string][]*regexp.Regexp
}

// NewErrorFilter compiles per-linter filter patterns. Invalid patterns
// fail construction so a typo in the config surfaces immediately.
func NewErrorFilter(patterns map[string][]string) (*ErrorFilter, error) {
	byLinter := make(map[string][]*regexp.Regexp, len(patterns))
	for linter, exprs := range patterns {
		for _, expr := range exprs {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("linter %s: error-filter %q: %w", linter, expr, err)
			}
			byLinter[linter] = append(byLinter[linter], re)
		}
	}
	return &ErrorFilter{byLinter: byLinter}, nil
}

// Name returns the processor's identifier.
func (*ErrorFilter) Name() string { return "error-filter" }

// Process implements Processor.
func (p *ErrorFilter) Process(findings []*finding.Finding) []*finding.Finding {
	if len(p.byLinter) == 0 {
		return findings
	}
	out := findings[:0]
	for _, f := range findings {
		if p.dropped(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (p *ErrorFilter) dropped(f *finding.Finding) bool {
	res := p.byLinter[f.Linter]
	if len(res) == 0 {
		return false
	}
	rendered := fmt.Sprintf("%s: %s: %s", f.ErrorType, f.Code, f.Message)
	for _, re := range res {
		if re.MatchString(rendered) {
			return true
		}
	}
	return false
}
