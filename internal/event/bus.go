// Package event implements the minimal synchronous publish/subscribe bus
// that decouples the lint engine from its consumers (status aggregation,
// diagnostics publishing). Handlers run on the publishing goroutine; the
// bus never buffers, reorders or replays events.
package event

import (
	"sync"

	"github.com/wharflab/relint/internal/finding"
)

// Topic identifies an event kind. All topics share one namespace.
type Topic string

const (
	// JobStarted fires before a linter job begins work.
	JobStarted Topic = "job_started"
	// JobEnded fires after a linter job finishes, regardless of outcome.
	JobEnded Topic = "job_ended"
	// ResultsUpdated fires after a delivery landed in the finding store.
	// Published by host glue, not by the engine itself.
	ResultsUpdated Topic = "results_updated"
)

// Payload carries the event fields. Findings is set for ResultsUpdated only.
type Payload struct {
	Filename string
	Linter   string
	Findings []*finding.Finding
}

// Handler receives published payloads.
type Handler func(Payload)

// Subscription identifies one registered handler for removal.
type Subscription struct {
	topic Topic
	fn    Handler
}

// Bus is a process-wide synchronous event bus. The zero value is not
// usable; use NewBus.
type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]*Subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]*Subscription)}
}

// Subscribe registers fn for topic and returns the handle needed to
// unsubscribe. Subscribers must unregister on shutdown so handlers do not
// leak across reload cycles.
func (b *Bus) Subscribe(topic Topic, fn Handler) *Subscription {
	sub := &Subscription{topic: topic, fn: fn}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.topic]
	for i, s := range list {
		if s == sub {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish delivers the payload to every handler subscribed to topic at the
// time of the call. Handlers run synchronously, in subscription order, on
// the publishing goroutine.
func (b *Bus) Publish(topic Topic, p Payload) {
	b.mu.Lock()
	list := b.subs[topic]
	snapshot := make([]*Subscription, len(list))
	copy(snapshot, list)
	b.mu.Unlock()

	for _, sub := range snapshot {
		sub.fn(p)
	}
}
