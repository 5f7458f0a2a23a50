package core

import "sync"

// Batcher accumulates change events between flush ticks so that a
// burst of arrivals costs the consuming view a single update. It is a
// plain buffer: the session run loop pushes as events arrive and
// drains on its fixed-interval tick.
type Batcher struct {
	mu      sync.Mutex
	pending []ChangeEvent
}

// Push appends events to the pending buffer in arrival order.
func (b *Batcher) Push(events ...ChangeEvent) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, events...)
}

// Drain removes and returns the full pending buffer. An empty result
// means the tick has no work to do and no reconciliation call should
// be made.
func (b *Batcher) Drain() []ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.pending
	b.pending = nil
	return events
}

// Len returns the number of buffered events.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// CollapseLastWrite reduces one flush window's events to at most one
// event per object id, keeping only the most recent event for each id.
// Earlier events for the same id within the window are discarded, so a
// rapid Added-Modified-Deleted sequence collapses to just the final
// Deleted. Relative order of the surviving events follows each id's
// first appearance; cache merge semantics do not depend on it.
func CollapseLastWrite(events []ChangeEvent) []ChangeEvent {
	if len(events) <= 1 {
		return events
	}

	index := make(map[string]int, len(events))
	reduced := make([]ChangeEvent, 0, len(events))

	for _, ev := range events {
		if i, ok := index[ev.Object.ID]; ok {
			reduced[i] = ev
			continue
		}
		index[ev.Object.ID] = len(reduced)
		reduced = append(reduced, ev)
	}

	return reduced
}
