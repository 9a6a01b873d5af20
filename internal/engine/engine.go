// Package engine implements the concurrent lint orchestrator.
//
// One call to [Engine.Schedule] turns a document snapshot and its
// applicable linters into jobs (one per linter) made of tasks (one per
// examined region). Jobs run on a bounded dispatch pool, their tasks on a
// separate bounded execution pool; the first non-cancellation failure in a
// job cancels its remaining tasks. Consolidated results are delivered per
// linter through a single serialization goroutine so deliveries never race
// document state. Job runtimes feed an adaptive debounce delay.
package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/finding"
)

// Document is the read surface of a document snapshot the engine lints.
// Implementations must be safe for concurrent use; snapshots are.
type Document interface {
	ID() int64
	Filename() string
	ShortName() string
	Size() int
	Substr(finding.Region) string
	RowCol(offset int) (row, col int)
}

// Linter is one configured analysis tool bound to a document snapshot.
//
// Lint analyzes code, the text of one examined region, and reports
// findings in region-local coordinates. A well-behaved implementation
// polls changed at safe points and returns a TransientError once the
// snapshot is stale; it returns a PermanentError when it cannot run at
// all. Instances may be invoked concurrently for multiple regions.
type Linter interface {
	Name() string
	Lint(ctx context.Context, code string, changed func() bool) ([]*finding.Finding, error)
	// NotifyFailure marks the linter failed for status surfaces after an
	// unclassified error.
	NotifyFailure()
}

// LinterInfo describes one applicable linter for a scheduling call.
type LinterInfo struct {
	// Name of the linter as shown in events, logs and findings.
	Name string
	// New creates the instance used for this cycle's tasks.
	New func() Linter
	// Regions are the document spans the linter must examine, one task
	// each. A descriptor without regions yields no job.
	Regions []finding.Region
}

// Sink receives one linter's consolidated findings. Called on the engine's
// delivery goroutine, at most once per linter per Schedule call.
type Sink func(linterName string, findings []*finding.Finding)

// Offsets locate an examined region inside the full document.
type Offsets struct {
	Line  int // line the region starts on
	Col   int // column the region starts at
	Point int // absolute offset of the region start
}

// Options configures an Engine.
type Options struct {
	// Logger receives engine logs; defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// Bus receives job lifecycle events; defaults to a fresh bus.
	Bus *event.Bus
	// Priority resolves display priorities during finalization;
	// defaults to 0 for every finding.
	Priority func(*finding.Finding) int
	// Concurrency sizes each worker pool; defaults to runtime.NumCPU().
	Concurrency int
}

// Engine owns the worker pools, runtime history, advisory log and the
// delivery serialization goroutine.
type Engine struct {
	log      logrus.FieldLogger
	bus      *event.Bus
	priority func(*finding.Finding) int

	dispatchSem chan struct{}
	executeSem  chan struct{}

	history  *History
	advisory *advisoryLog

	seqMu  sync.Mutex
	jobSeq int

	jobsWG     sync.WaitGroup
	deliveries chan func()
	deliverWG  sync.WaitGroup
	closeOnce  sync.Once
}

// New creates an engine and starts its delivery goroutine.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	priority := opts.Priority
	if priority == nil {
		priority = func(*finding.Finding) int { return 0 }
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = max(runtime.NumCPU(), 1)
	}

	e := &Engine{
		log:         log,
		bus:         bus,
		priority:    priority,
		dispatchSem: make(chan struct{}, concurrency),
		executeSem:  make(chan struct{}, concurrency),
		history:     NewHistory(),
		advisory:    newAdvisoryLog(log),
		deliveries:  make(chan func(), 64),
	}
	e.deliverWG.Add(1)
	go e.deliveryLoop()
	return e
}

// Bus returns the engine's event bus for lifecycle subscriptions.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Delay returns the adaptive debounce delay before the next lint cycle.
func (e *Engine) Delay(configured time.Duration) time.Duration {
	return e.history.Delay(configured)
}

// Close waits for in-flight jobs, drains pending deliveries and stops the
// delivery goroutine. The engine must not be scheduled on afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.jobsWG.Wait()
		close(e.deliveries)
		e.deliverWG.Wait()
	})
}

// Schedule builds one job per linter with at least one region and submits
// each fire-and-forget to the dispatch pool. It returns immediately and
// never panics outward; every failure is absorbed and logged. The changed
// predicate must be safe to call from multiple goroutines; deliver runs on
// the delivery goroutine.
func (e *Engine) Schedule(doc Document, linters []LinterInfo, changed func() bool, deliver Sink) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("lint scheduling for '%s' failed: %v", doc.ShortName(), r)
		}
	}()

	if changed == nil {
		changed = func() bool { return false }
	}
	if deliver == nil {
		deliver = func(string, []*finding.Finding) {}
	}

	jobs := e.buildJobs(doc, linters)
	if len(jobs) == 0 {
		return
	}
	e.warnExcessiveTasks(doc, jobs)

	for _, jb := range jobs {
		e.jobsWG.Add(1)
		go func() {
			defer e.jobsWG.Done()
			defer func() {
				// Best-effort boundary: a crashed job must neither take
				// down the process nor block sibling jobs.
				if r := recover(); r != nil {
					e.log.WithFields(jb.fields()).Errorf("lint job crashed: %v", r)
				}
			}()
			e.dispatchSem <- struct{}{}
			defer func() { <-e.dispatchSem }()
			e.runJob(jb, changed, deliver)
		}()
	}
}

func (e *Engine) buildJobs(doc Document, linters []LinterInfo) []*job {
	jobs := make([]*job, 0, len(linters))
	for _, info := range linters {
		if len(info.Regions) == 0 || info.New == nil {
			continue
		}
		instance := info.New()
		if instance == nil {
			continue
		}
		name := info.Name
		if name == "" {
			name = instance.Name()
		}
		tasks := make([]task, 0, len(info.Regions))
		for _, region := range info.Regions {
			row, col := doc.RowCol(region.A)
			tasks = append(tasks, task{
				code:    doc.Substr(region),
				offsets: Offsets{Line: row, Col: col, Point: region.A},
			})
		}
		jobs = append(jobs, &job{
			num:    e.nextJobNum(),
			name:   name,
			linter: instance,
			doc:    doc,
			tasks:  tasks,
		})
	}
	return jobs
}

func (e *Engine) nextJobNum() int {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	e.jobSeq++
	return e.jobSeq
}

func (e *Engine) enqueueDelivery(fn func()) {
	e.deliveries <- fn
}

func (e *Engine) deliveryLoop() {
	defer e.deliverWG.Done()
	for fn := range e.deliveries {
		e.runDelivery(fn)
	}
}

func (e *Engine) runDelivery(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("delivery callback panicked: %v", r)
		}
	}()
	fn()
}
