package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/finding"
)

// job bundles everything one linter must do for one document snapshot.
type job struct {
	num    int
	name   string
	linter Linter
	doc    Document
	tasks  []task
}

// task is one linter invocation over one examined region.
type task struct {
	code    string
	offsets Offsets
}

func (jb *job) fields() logrus.Fields {
	return logrus.Fields{"job": jb.num, "linter": jb.name, "file": jb.doc.ShortName()}
}

// runJob executes a job on the dispatch pool and enqueues the delivery
// unless the job was abandoned or failed.
func (e *Engine) runJob(jb *job, changed func() bool, deliver Sink) {
	results, ok := e.executeJob(jb, changed)
	if !ok {
		return
	}
	e.enqueueDelivery(func() { deliver(jb.name, results) })
}

// executeJob brackets the task fan-out with started/ended events and
// records the elapsed runtime. It reports ok=false when nothing must be
// delivered.
func (e *Engine) executeJob(jb *job, changed func() bool) (results []*finding.Finding, ok bool) {
	payload := event.Payload{Filename: jb.doc.Filename(), Linter: jb.name}
	e.bus.Publish(event.JobStarted, payload)
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		e.history.Record(elapsed)
		e.log.WithFields(jb.fields()).Infof(
			"Linting '%s' with %s took %.2fs", jb.doc.ShortName(), jb.name, elapsed.Seconds())
		e.bus.Publish(event.JobEnded, payload)
	}()

	results, err := e.runTasks(jb, changed)
	if err != nil {
		var transient *TransientError
		switch {
		case errors.As(err, &transient), errors.Is(err, context.Canceled):
			// Stale snapshot. Abandon silently; whatever is on screen
			// stays until a fresh cycle supersedes it.
			e.log.WithFields(jb.fields()).Debugf("job abandoned: %v", err)
		default:
			e.log.WithFields(jb.fields()).Errorf("lint job failed: %v", err)
		}
		return nil, false
	}
	return results, true
}

// runTasks submits every task to the execution pool and waits until all
// finish or the first one raises a transient failure. The failure cancels
// the job context, so tasks still waiting for a pool slot never start.
// Results are flattened in task order; a permanent or unclassified task
// failure empties the whole job so stale findings are cleared in one piece.
func (e *Engine) runTasks(jb *job, changed func() bool) ([]*finding.Finding, error) {
	results := make([][]*finding.Finding, len(jb.tasks))
	var cleared atomic.Bool
	g, ctx := errgroup.WithContext(context.Background())
	for i, t := range jb.tasks {
		g.Go(func() error {
			select {
			case e.executeSem <- struct{}{}:
				defer func() { <-e.executeSem }()
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			found, failed, err := e.runTask(ctx, jb, t, changed)
			if err != nil {
				return err
			}
			if failed {
				cleared.Store(true)
				return nil
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cleared.Load() {
		return []*finding.Finding{}, nil
	}

	var flat []*finding.Finding
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat, nil
}
