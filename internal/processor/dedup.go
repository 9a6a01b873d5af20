package processor

import (
	"github.com/wharflab/relint/internal/finding"
)

// Dedup removes findings that share a UID. Two linters examining
// overlapping regions, or one linter fed overlapping regions, can report
// the same problem twice; the UID hash makes those duplicates exact.
type Dedup struct{}

// Name returns the processor's identifier.
func (Dedup) Name() string { return "dedup" }

// Process implements Processor. The first occurrence of each UID wins;
// findings without a UID (never finalized) pass through untouched.
func (Dedup) Process(findings []*finding.Finding) []*finding.Finding {
	seen := make(map[string]struct{}, len(findings))
	out := findings[:0]
	for _, f := range findings {
		if f.UID != "" {
			if _, dup := seen[f.UID]; dup {
				continue
			}
			seen[f.UID] = struct{}{}
		}
		out = append(out, f)
	}
	return out
}
