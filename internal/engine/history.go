package engine

import (
	"slices"
	"sync"
	"time"
)

// Delay bounds. The floor keeps a configured zero delay from busy-looping
// the debounce timer; the ceiling keeps slow linters from pushing the
// automatic delay beyond what feels responsive.
const (
	MinDelay          = 500 * time.Microsecond
	MaxAutomaticDelay = 2 * time.Second
)

const (
	historyCapacity = 10
	seedRuntime     = 600 * time.Millisecond
)

// History is a bounded ring of recent job runtimes. It is seeded with a
// few plausible entries so early delay estimates are not degenerate.
type History struct {
	mu       sync.Mutex
	runtimes []time.Duration
}

// NewHistory returns a seeded history.
func NewHistory() *History {
	return &History{
		runtimes: []time.Duration{seedRuntime, seedRuntime, seedRuntime},
	}
}

// Record appends a job runtime, evicting the oldest entry at capacity.
func (h *History) Record(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runtimes = append(h.runtimes, d)
	if len(h.runtimes) > historyCapacity {
		h.runtimes = h.runtimes[len(h.runtimes)-historyCapacity:]
	}
}

// Delay computes the debounce delay before the next lint cycle:
// half the median runtime, clamped to MaxAutomaticDelay, but never below
// the configured minimum or MinDelay.
func (h *History) Delay(configured time.Duration) time.Duration {
	h.mu.Lock()
	snapshot := slices.Clone(h.runtimes)
	h.mu.Unlock()

	var median time.Duration
	if len(snapshot) > 0 {
		slices.Sort(snapshot)
		median = snapshot[len(snapshot)/2]
	}
	return max(max(MinDelay, configured), min(MaxAutomaticDelay, median/2))
}
