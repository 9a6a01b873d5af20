// Package status aggregates engine events into a compact per-file summary
// of linter health, the line an editor shows next to a file: which linters
// ran, which are busy, which failed, and how many problems each reported.
package status

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/wharflab/relint/internal/event"
	"github.com/wharflab/relint/internal/finding"
)

// Tracker folds job and result events into per-file state. All methods are
// safe for concurrent use; handlers run on the publishing goroutine.
type Tracker struct {
	mu       sync.Mutex
	assigned map[string]map[string]bool
	failed   map[string]map[string]bool
	problems map[string]map[string]string
	running  map[string]int

	bus  *event.Bus
	subs []*event.Subscription
}

// NewTracker subscribes to the bus and returns a tracker that stays current
// until Detach is called.
func NewTracker(bus *event.Bus) *Tracker {
	t := &Tracker{
		assigned: make(map[string]map[string]bool),
		failed:   make(map[string]map[string]bool),
		problems: make(map[string]map[string]string),
		running:  make(map[string]int),
		bus:      bus,
	}
	t.subs = []*event.Subscription{
		bus.Subscribe(event.JobStarted, t.onJobStarted),
		bus.Subscribe(event.JobEnded, t.onJobEnded),
		bus.Subscribe(event.ResultsUpdated, t.onResults),
	}
	return t
}

// Detach unsubscribes the tracker from its bus. State stays readable.
func (t *Tracker) Detach() {
	for _, sub := range t.subs {
		t.bus.Unsubscribe(sub)
	}
	t.subs = nil
}

// Assign records which linters apply to a file and resets its failure
// marks. Call whenever the applicable set is (re)computed.
func (t *Tracker) Assign(filename string, linters []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := make(map[string]bool, len(linters))
	for _, name := range linters {
		set[name] = true
	}
	t.assigned[filename] = set
	t.failed[filename] = make(map[string]bool)
}

// Fail marks a linter as broken for a file. The mark sticks until the next
// Assign and turns the linter's summary cell into "name?".
func (t *Tracker) Fail(filename, linter string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failed[filename] == nil {
		t.failed[filename] = make(map[string]bool)
	}
	t.failed[filename][linter] = true
}

// Running returns how many lint jobs are currently in flight for a file.
func (t *Tracker) Running(filename string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running[filename]
}

// Summary renders the one-line health summary for a file: entries sorted by
// severity (clean, problems, failed) then name, joined with spaces. A clean
// linter shows bare, a failed one as "name?", one with problems as
// "name(w:N e:M)".
func (t *Tracker) Summary(filename string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	problems := t.problems[filename]
	if len(problems) == 0 {
		return ""
	}
	names := make([]string, 0, len(problems))
	for name := range problems {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := severityRank(problems[names[i]]), severityRank(problems[names[j]])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + problems[name]
	}
	return strings.Join(parts, " ")
}

func severityRank(cell string) int {
	switch {
	case cell == "":
		return 0
	case cell[0] == '?':
		return 2
	default:
		return 1
	}
}

func (t *Tracker) onJobStarted(p event.Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running[p.Filename]++
}

func (t *Tracker) onJobEnded(p event.Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running[p.Filename] <= 1 {
		delete(t.running, p.Filename)
	} else {
		t.running[p.Filename]--
	}
}

func (t *Tracker) onResults(p event.Payload) {
	t.mu.Lock()
	defer t.mu.Unlock()

	problems := t.problems[p.Filename]
	if problems == nil {
		problems = make(map[string]string)
		t.problems[p.Filename] = problems
	}

	switch {
	case t.failed[p.Filename][p.Linter]:
		problems[p.Linter] = "?"
	case t.assigned[p.Filename][p.Linter] || len(p.Findings) > 0:
		if t.assigned[p.Filename] == nil {
			t.assigned[p.Filename] = make(map[string]bool)
		}
		t.assigned[p.Filename][p.Linter] = true
		problems[p.Linter] = renderCounts(finding.CountByTag(p.Findings))
	default:
		delete(problems, p.Linter)
	}
}

// renderCounts formats severity counts as "(d:1 w:2 e:3)": uncommon type
// letters sorted first, then warnings, then errors, zero counts skipped.
func renderCounts(counts map[byte]int) string {
	tags := make([]byte, 0, len(counts))
	for tag := range counts {
		if tag != 'w' && tag != 'e' && tag != 0 {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	tags = append(tags, 'w', 'e')

	var parts []string
	for _, tag := range tags {
		if n := counts[tag]; n > 0 {
			parts = append(parts, fmt.Sprintf("%c:%d", tag, n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}
