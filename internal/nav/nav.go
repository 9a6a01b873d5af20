// Package nav computes jump targets for moving between findings in a
// document, cycling by region start the way goto-next-problem commands do.
package nav

import (
	"slices"
	"sort"

	"github.com/wharflab/relint/internal/finding"
)

// Outcome describes the result of a jump attempt.
type Outcome int

const (
	// Moved: a target was found in the requested direction.
	Moved Outcome = iota
	// NoProblems: the document has no findings at all.
	NoProblems
	// NoMoreProblems: the point sits on the only remaining finding, so
	// there is nothing to jump to and even wrapping is a no-op.
	NoMoreProblems
	// NoMoreAhead / NoMoreBehind: nothing in that direction and wrapping
	// was not requested.
	NoMoreAhead
	NoMoreBehind
	// WrappedToFirst / WrappedToLast: the jump ran off the end and came
	// back around.
	WrappedToFirst
	WrappedToLast
)

func (o Outcome) String() string {
	switch o {
	case Moved:
		return "moved"
	case NoProblems:
		return "no problems"
	case NoMoreProblems:
		return "no more problems"
	case NoMoreAhead:
		return "no more problems below"
	case NoMoreBehind:
		return "no more problems above"
	case WrappedToFirst:
		return "jumped to first problem"
	case WrappedToLast:
		return "jumped to last problem"
	}
	return "unknown"
}

// Jump picks the offset to move to from point, skipping count-1 findings in
// the given direction. Findings whose region contains the point (ends
// inclusive) are not jump targets; duplicate region starts collapse into
// one. A move wider than what is left clamps to the furthest target instead
// of wrapping. The returned target is -1 unless the outcome is Moved,
// WrappedToFirst or WrappedToLast.
func Jump(findings []*finding.Finding, point int, forward bool, count int, wrap bool) (int, Outcome) {
	if len(findings) == 0 {
		return -1, NoProblems
	}
	if count < 1 {
		count = 1
	}

	seen := make(map[int]bool)
	var positions []int
	for _, f := range findings {
		if f.Region.Contains(point) {
			continue
		}
		if !seen[f.Region.A] {
			seen[f.Region.A] = true
			positions = append(positions, f.Region.A)
		}
	}
	if len(positions) == 0 {
		return -1, NoMoreProblems
	}
	slices.Sort(positions)

	// Split around the point: candidates at or past it go ahead, the rest
	// behind, nearest first.
	split := sort.SearchInts(positions, point)
	candidates := positions[split:]
	if !forward {
		behind := positions[:split]
		candidates = make([]int, len(behind))
		for i, pos := range behind {
			candidates[len(behind)-1-i] = pos
		}
	}

	switch {
	case len(candidates) == 0:
		if !wrap {
			if forward {
				return -1, NoMoreAhead
			}
			return -1, NoMoreBehind
		}
		if forward {
			return positions[0], WrappedToFirst
		}
		return positions[len(positions)-1], WrappedToLast
	case len(candidates) <= count:
		return candidates[len(candidates)-1], Moved
	default:
		return candidates[count-1], Moved
	}
}
