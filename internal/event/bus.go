// Package event provides a small typed publish/subscribe bus, scoped
// to the application's lifetime. It replaces ambient global events
// with explicit subscriptions: the cache store publishes update and
// invalidation notifications here, and view surfaces subscribe with
// per-key filters.
package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBufferSize   = 64
	dropWarningInterval = 30 * time.Second
)

// Options configures a Bus.
type Options struct {
	// Name identifies the bus in log output.
	Name string
	// BufferSize is the per-subscriber channel capacity. Deliveries
	// to a full subscriber are dropped, never blocked on.
	BufferSize int
}

type subscription[T any] struct {
	id     uint64
	ch     chan T
	filter func(T) bool
}

// Bus fans published values out to all matching subscribers. Publish
// never blocks; slow subscribers lose events rather than stalling the
// publisher.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]subscription[T]
	nextID      uint64
	closed      bool
	opts        Options
	published   atomic.Int64
	dropped     atomic.Int64
	lastWarning atomic.Int64
}

// New returns an open Bus.
func New[T any](opts Options) *Bus[T] {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	return &Bus[T]{
		subscribers: make(map[uint64]subscription[T]),
		opts:        opts,
	}
}

// Subscribe registers a subscriber for all published values. The
// returned cancel func removes the subscription and closes its
// channel.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	return b.SubscribeFiltered(nil)
}

// SubscribeFiltered registers a subscriber that only receives values
// for which filter returns true. A nil filter matches everything.
func (b *Bus[T]) SubscribeFiltered(filter func(T) bool) (<-chan T, func()) {
	ch := make(chan T, b.opts.BufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.nextID++
	id := b.nextID
	b.subscribers[id] = subscription[T]{id: id, ch: ch, filter: filter}
	b.mu.Unlock()

	return ch, func() { b.remove(id) }
}

// Publish delivers the value to every matching subscriber. Full
// subscriber channels drop the value.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := make([]subscription[T], 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.filter != nil && !sub.filter(v) {
			continue
		}
		b.published.Add(1)
		if !b.safeSend(sub, v) {
			b.noteDrop()
		}
	}
}

// safeSend attempts a non-blocking delivery to sub. The subscriber's
// channel may be closed by a concurrent cancel or Close between the
// snapshot in Publish and the send here; the recover turns that into
// a failed delivery and drops the dead subscription.
func (b *Bus[T]) safeSend(sub subscription[T], v T) (delivered bool) {
	defer func() {
		if recover() != nil {
			b.remove(sub.id)
			delivered = false
		}
	}()
	select {
	case sub.ch <- v:
		return true
	default:
		return false
	}
}

// noteDrop counts a discarded delivery and warns at most once per
// dropWarningInterval so a persistently slow subscriber does not
// flood the log.
func (b *Bus[T]) noteDrop() {
	dropped := b.dropped.Add(1)
	now := time.Now().UnixNano()
	last := b.lastWarning.Load()
	if now-last < int64(dropWarningInterval) {
		return
	}
	if b.lastWarning.CompareAndSwap(last, now) {
		slog.Warn("event bus dropping for slow subscriber",
			"bus", b.name(), "dropped", dropped, "published", b.published.Load())
	}
}

// Close removes all subscribers and closes their channels. Publish
// and Subscribe become no-ops afterwards.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subscribers
	b.subscribers = make(map[uint64]subscription[T])
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Dropped returns the total number of deliveries discarded because a
// subscriber's buffer was full.
func (b *Bus[T]) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.ch)
	}
}

func (b *Bus[T]) name() string {
	if b.opts.Name == "" {
		return "event_bus"
	}
	return b.opts.Name
}
