package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/wharflab/relint/internal/finding"
)

// runTask invokes the linter for one region and classifies failures.
//
// Transient errors propagate so the owning job aborts without delivery.
// Permanent errors and unclassified faults, panics included, report
// failed=true so the job delivers an empty list, clearing stale findings
// for a linter that stopped being viable; unclassified faults additionally
// mark the linter failed and are logged in full.
func (e *Engine) runTask(ctx context.Context, jb *job, t task, changed func() bool) (found []*finding.Finding, failed bool, err error) {
	found, lintErr := safeLint(ctx, jb.linter, t.code, changed)
	if lintErr != nil {
		var transient *TransientError
		if errors.As(lintErr, &transient) || errors.Is(lintErr, context.Canceled) {
			return nil, false, lintErr
		}
		var permanent *PermanentError
		if errors.As(lintErr, &permanent) {
			return nil, true, nil
		}
		jb.linter.NotifyFailure()
		e.log.WithFields(jb.fields()).Errorf("unexpected problem while linting: %v", lintErr)
		return nil, true, nil
	}
	e.finalize(jb, found, t.offsets)
	return found, false, nil
}

// safeLint converts a panicking linter into an unclassified error.
func safeLint(ctx context.Context, l Linter, code string, changed func() bool) (found []*finding.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = nil, fmt.Errorf("linter panicked: %v", r)
		}
	}()
	return l.Lint(ctx, code, changed)
}
