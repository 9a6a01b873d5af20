package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/wharflab/relint/internal/document"
	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/finding"
)

// mockLinter implements Linter for testing.
type mockLinter struct {
	name     string
	fn       func(ctx context.Context, code string, changed func() bool) ([]*finding.Finding, error)
	calls    atomic.Int32
	failures atomic.Int32
}

func (l *mockLinter) Name() string    { return l.name }
func (l *mockLinter) NotifyFailure() { l.failures.Add(1) }

func (l *mockLinter) Lint(ctx context.Context, code string, changed func() bool) ([]*finding.Finding, error) {
	l.calls.Add(1)
	if l.fn == nil {
		return nil, nil
	}
	return l.fn(ctx, code, changed)
}

func (l *mockLinter) info(regions ...finding.Region) LinterInfo {
	return LinterInfo{
		Name:    l.name,
		New:     func() Linter { return l },
		Regions: regions,
	}
}

// sinkRecorder collects delivery calls per linter.
type sinkRecorder struct {
	mu    sync.Mutex
	calls map[string][][]*finding.Finding
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{calls: make(map[string][][]*finding.Finding)}
}

func (s *sinkRecorder) sink(name string, findings []*finding.Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name] = append(s.calls[name], findings)
}

func (s *sinkRecorder) deliveries(name string) [][]*finding.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	if opts.Logger == nil {
		opts.Logger = logger
	}
	e := New(opts)
	t.Cleanup(e.Close)
	return e, hook
}

func snapshotDoc(text string) *document.Snapshot {
	return document.New("/src/app.py", text).Snapshot()
}

func mainFileFinding(errorType, msg string) *finding.Finding {
	return &finding.Finding{
		Filename:  "/src/app.py",
		ErrorType: errorType,
		Message:   msg,
	}
}

func TestScheduleDeliversPerLinter(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{})
	doc := snapshotDoc("import os\n")

	a := &mockLinter{name: "A", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		return []*finding.Finding{
			mainFileFinding(finding.TypeError, "first"),
			mainFileFinding(finding.TypeError, "second"),
			mainFileFinding(finding.TypeWarning, "third"),
		}, nil
	}}
	b := &mockLinter{name: "B", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		return nil, Permanentf("executable not found")
	}}

	rec := newSinkRecorder()
	e.Schedule(doc, []LinterInfo{a.info(doc.FullRegion()), b.info(doc.FullRegion())}, nil, rec.sink)
	e.Close()

	aCalls := rec.deliveries("A")
	if len(aCalls) != 1 {
		t.Fatalf("expected 1 delivery for A, got %d", len(aCalls))
	}
	if len(aCalls[0]) != 3 {
		t.Fatalf("expected 3 findings for A, got %d", len(aCalls[0]))
	}
	counts := finding.CountByTag(aCalls[0])
	if counts['e'] != 2 || counts['w'] != 1 {
		t.Errorf("expected 2 errors and 1 warning, got %v", counts)
	}
	for _, f := range aCalls[0] {
		if f.Linter != "A" {
			t.Errorf("expected linter A on finding, got %q", f.Linter)
		}
		if f.UID == "" {
			t.Error("expected a uid on every delivered finding")
		}
	}

	bCalls := rec.deliveries("B")
	if len(bCalls) != 1 {
		t.Fatalf("expected 1 delivery for B, got %d", len(bCalls))
	}
	if len(bCalls[0]) != 0 {
		t.Errorf("expected empty delivery for B, got %d findings", len(bCalls[0]))
	}
}

func TestScheduleDoesNotBlock(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{Concurrency: 1})
	doc := snapshotDoc("x = 1\n")

	release := make(chan struct{})
	slow := &mockLinter{name: "slow", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		<-release
		return nil, nil
	}}

	start := time.Now()
	e.Schedule(doc, []LinterInfo{slow.info(doc.FullRegion())}, nil, func(string, []*finding.Finding) {})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Schedule blocked for %v", elapsed)
	}

	close(release)
	e.Close()
}

func TestTransientFailureAbandonsJobEntirely(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{Concurrency: 2})
	doc := snapshotDoc("abcde")

	// Five single-byte regions; the third aborts with a transient failure.
	regions := make([]finding.Region, 5)
	for i := range regions {
		regions[i] = finding.Region{A: i, B: i + 1}
	}
	l := &mockLinter{name: "A", fn: func(_ context.Context, code string, _ func() bool) ([]*finding.Finding, error) {
		if code == "c" {
			return nil, Transientf("aborted")
		}
		return []*finding.Finding{mainFileFinding(finding.TypeError, "from "+code)}, nil
	}}

	rec := newSinkRecorder()
	e.Schedule(doc, []LinterInfo{l.info(regions...)}, nil, rec.sink)
	e.Close()

	if calls := rec.deliveries("A"); len(calls) != 0 {
		t.Fatalf("transient abandonment must suppress delivery entirely, got %d deliveries", len(calls))
	}
	if l.failures.Load() != 0 {
		t.Errorf("transient failure must not notify the linter, got %d notifications", l.failures.Load())
	}
}

func TestPermanentFailureClearsSiblingResults(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{})
	doc := snapshotDoc("ab")

	l := &mockLinter{name: "A", fn: func(_ context.Context, code string, _ func() bool) ([]*finding.Finding, error) {
		if code == "b" {
			return nil, Permanentf("tool missing")
		}
		return []*finding.Finding{mainFileFinding(finding.TypeError, "kept?")}, nil
	}}

	rec := newSinkRecorder()
	e.Schedule(doc, []LinterInfo{l.info(finding.Region{A: 0, B: 1}, finding.Region{A: 1, B: 2})}, nil, rec.sink)
	e.Close()

	calls := rec.deliveries("A")
	if len(calls) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(calls))
	}
	if len(calls[0]) != 0 {
		t.Errorf("a failed job must deliver an empty list, got %d findings", len(calls[0]))
	}
	if l.failures.Load() != 0 {
		t.Errorf("permanent failure must not notify the linter, got %d notifications", l.failures.Load())
	}
}

func TestUnclassifiedFailureNotifiesAndClears(t *testing.T) {
	t.Parallel()
	e, hook := newTestEngine(t, Options{})
	doc := snapshotDoc("x = 1\n")

	l := &mockLinter{name: "A", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		return nil, errors.New("boom")
	}}

	rec := newSinkRecorder()
	e.Schedule(doc, []LinterInfo{l.info(doc.FullRegion())}, nil, rec.sink)
	e.Close()

	calls := rec.deliveries("A")
	if len(calls) != 1 || len(calls[0]) != 0 {
		t.Fatalf("expected one empty delivery, got %v", calls)
	}
	if l.failures.Load() != 1 {
		t.Errorf("expected 1 failure notification, got %d", l.failures.Load())
	}

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			logged = true
		}
	}
	if !logged {
		t.Error("expected the unclassified failure to be logged as an error")
	}
}

func TestPanickingLinterIsContained(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{})
	doc := snapshotDoc("x = 1\n")

	l := &mockLinter{name: "A", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		panic("linter bug")
	}}

	rec := newSinkRecorder()
	e.Schedule(doc, []LinterInfo{l.info(doc.FullRegion())}, nil, rec.sink)
	e.Close()

	calls := rec.deliveries("A")
	if len(calls) != 1 || len(calls[0]) != 0 {
		t.Fatalf("expected one empty delivery after a panicking linter, got %v", calls)
	}
	if l.failures.Load() != 1 {
		t.Errorf("expected 1 failure notification, got %d", l.failures.Load())
	}
}

func TestJobEventsBracketExecution(t *testing.T) {
	t.Parallel()
	bus := event.NewBus()
	e, _ := newTestEngine(t, Options{Bus: bus})
	doc := snapshotDoc("ab")

	var mu sync.Mutex
	var started, ended []event.Payload
	bus.Subscribe(event.JobStarted, func(p event.Payload) {
		mu.Lock()
		started = append(started, p)
		mu.Unlock()
	})
	bus.Subscribe(event.JobEnded, func(p event.Payload) {
		mu.Lock()
		ended = append(ended, p)
		mu.Unlock()
	})

	ok := &mockLinter{name: "ok"}
	abandoned := &mockLinter{name: "abandoned", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		return nil, Transientf("stale")
	}}

	e.Schedule(doc, []LinterInfo{ok.info(doc.FullRegion()), abandoned.info(doc.FullRegion())}, nil, func(string, []*finding.Finding) {})
	e.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(started) != 2 || len(ended) != 2 {
		t.Fatalf("expected 2 started and 2 ended events, got %d/%d", len(started), len(ended))
	}
	seen := make(map[string]bool)
	for _, p := range ended {
		if p.Filename != doc.Filename() {
			t.Errorf("expected filename %q in payload, got %q", doc.Filename(), p.Filename)
		}
		seen[p.Linter] = true
	}
	if !seen["ok"] || !seen["abandoned"] {
		t.Errorf("expected ended events for both linters, got %v", seen)
	}
}

func TestNoRegionsNoJob(t *testing.T) {
	t.Parallel()
	bus := event.NewBus()
	e, _ := newTestEngine(t, Options{Bus: bus})
	doc := snapshotDoc("x")

	var events atomic.Int32
	bus.Subscribe(event.JobStarted, func(event.Payload) { events.Add(1) })

	l := &mockLinter{name: "A"}
	rec := newSinkRecorder()
	e.Schedule(doc, []LinterInfo{l.info()}, nil, rec.sink)
	e.Close()

	if l.calls.Load() != 0 {
		t.Errorf("linter without regions must not run, got %d calls", l.calls.Load())
	}
	if events.Load() != 0 {
		t.Errorf("expected no events, got %d", events.Load())
	}
	if len(rec.deliveries("A")) != 0 {
		t.Error("expected no delivery for a linter without regions")
	}
}

func TestExecutionConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	const limit = 2
	e, _ := newTestEngine(t, Options{Concurrency: limit})
	doc := snapshotDoc("abcdef")

	regions := make([]finding.Region, 6)
	for i := range regions {
		regions[i] = finding.Region{A: i, B: i + 1}
	}
	l := &mockLinter{name: "A", fn: func(_ context.Context, _ string, _ func() bool) ([]*finding.Finding, error) {
		cur := concurrent.Add(1)
		for {
			old := maxConcurrent.Load()
			if cur <= old || maxConcurrent.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		concurrent.Add(-1)
		return nil, nil
	}}

	e.Schedule(doc, []LinterInfo{l.info(regions...)}, nil, func(string, []*finding.Finding) {})
	e.Close()

	if l.calls.Load() != 6 {
		t.Fatalf("expected 6 task executions, got %d", l.calls.Load())
	}
	if maxConcurrent.Load() > limit {
		t.Errorf("max concurrent = %d, should not exceed %d", maxConcurrent.Load(), limit)
	}
}

func TestDeliveriesAreMutuallyExclusive(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{Concurrency: 4})
	doc := snapshotDoc("x = 1\n")

	infos := make([]LinterInfo, 0, 8)
	for i := range 8 {
		l := &mockLinter{name: string(rune('a' + i))}
		infos = append(infos, l.info(doc.FullRegion()))
	}

	var inSink atomic.Bool
	var overlaps, total atomic.Int32
	e.Schedule(doc, infos, nil, func(string, []*finding.Finding) {
		if !inSink.CompareAndSwap(false, true) {
			overlaps.Add(1)
		}
		time.Sleep(time.Millisecond)
		inSink.Store(false)
		total.Add(1)
	})
	e.Close()

	if total.Load() != 8 {
		t.Fatalf("expected 8 deliveries, got %d", total.Load())
	}
	if overlaps.Load() != 0 {
		t.Errorf("deliveries overlapped %d times", overlaps.Load())
	}
}

func TestChangedPredicateReachesLinter(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Options{})
	live := document.New("/src/app.py", "v1")
	snap := live.Snapshot()
	live.SetText("v2")

	var sawStale atomic.Bool
	l := &mockLinter{name: "A", fn: func(_ context.Context, _ string, changed func() bool) ([]*finding.Finding, error) {
		if changed() {
			sawStale.Store(true)
			return nil, Transientf("aborted")
		}
		return nil, nil
	}}

	rec := newSinkRecorder()
	e.Schedule(snap, []LinterInfo{l.info(snap.FullRegion())}, func() bool { return live.ChangedSince(snap) }, rec.sink)
	e.Close()

	if !sawStale.Load() {
		t.Fatal("expected the linter to observe the changed predicate")
	}
	if len(rec.deliveries("A")) != 0 {
		t.Error("stale job must not deliver")
	}
}

func TestDeliveryPanicDoesNotKillTheLoop(t *testing.T) {
	t.Parallel()
	e, hook := newTestEngine(t, Options{})
	doc := snapshotDoc("x")

	first := &mockLinter{name: "first"}
	e.Schedule(doc, []LinterInfo{first.info(doc.FullRegion())}, nil, func(string, []*finding.Finding) {
		panic("sink bug")
	})

	// The loop must survive and serve later deliveries.
	var delivered atomic.Bool
	second := &mockLinter{name: "second"}
	e.Schedule(doc, []LinterInfo{second.info(doc.FullRegion())}, nil, func(string, []*finding.Finding) {
		delivered.Store(true)
	})
	e.Close()

	if !delivered.Load() {
		t.Fatal("expected delivery after a panicking sink")
	}
	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			logged = true
		}
	}
	if !logged {
		t.Error("expected the sink panic to be logged")
	}
}
