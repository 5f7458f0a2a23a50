package core

import "sync"

// EventChannel is the per-session inbound stream of change
// notifications: an unbounded ordered queue of events plus two
// one-shot signals, sync-complete and stream-end. The producer side
// (the watch adapter) calls Push, MarkSyncComplete, and MarkStreamEnd;
// the session run loop consumes via Notify and Drain.
//
// The queue is unbounded on purpose: arrival bursts must never block
// the producer, and backpressure toward the consumer is handled by
// the Batcher's fixed flush tick, not here.
type EventChannel struct {
	mu     sync.Mutex
	queue  []ChangeEvent
	closed bool

	notify    chan struct{}
	syncDone  chan struct{}
	streamEnd chan struct{}
	syncOnce  sync.Once
	endOnce   sync.Once
}

// NewEventChannel returns an open EventChannel.
func NewEventChannel() *EventChannel {
	return &EventChannel{
		notify:    make(chan struct{}, 1),
		syncDone:  make(chan struct{}),
		streamEnd: make(chan struct{}),
	}
}

// Push appends an event to the queue and wakes the consumer. Events
// pushed after Close are dropped, which is what silences a stopped
// session's late arrivals.
func (c *EventChannel) Push(ev ChangeEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, ev)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns all queued events in arrival order.
func (c *EventChannel) Drain() []ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.queue
	c.queue = nil
	return events
}

// Notify returns a channel that receives a token whenever new events
// are queued. The signal is coalesced; one token may cover several
// pushes.
func (c *EventChannel) Notify() <-chan struct{} {
	return c.notify
}

// SyncComplete returns a channel that is closed once the backend has
// finished replaying pre-existing state.
func (c *EventChannel) SyncComplete() <-chan struct{} {
	return c.syncDone
}

// MarkSyncComplete fires the sync-complete signal. Subsequent calls
// are no-ops.
func (c *EventChannel) MarkSyncComplete() {
	c.syncOnce.Do(func() { close(c.syncDone) })
}

// StreamEnd returns a channel that is closed when the backend ends
// the stream. After it fires the session is considered over.
func (c *EventChannel) StreamEnd() <-chan struct{} {
	return c.streamEnd
}

// MarkStreamEnd fires the stream-end signal. Subsequent calls are
// no-ops.
func (c *EventChannel) MarkStreamEnd() {
	c.endOnce.Do(func() { close(c.streamEnd) })
}

// Close drops any queued events and causes future Push calls to be
// ignored. It is safe to call multiple times.
func (c *EventChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.queue = nil
}
