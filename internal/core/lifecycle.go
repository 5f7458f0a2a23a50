package core

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// ---------------------------------------------------------------------------
// Collaborator interfaces
// ---------------------------------------------------------------------------

// WatchRepo is the remote watch backend. Start opens a push stream
// keyed by the session id and returns the channel the stream feeds;
// Stop delivers the stop notification for that id. Both are honoured
// best-effort by the backend, so Stop failures carry no meaning for
// local teardown.
type WatchRepo interface {
	Start(ctx context.Context, sessionID string, target WatchTarget) (*EventChannel, error)
	Stop(ctx context.Context, sessionID string) error
}

// SeedSource performs the initial full fetch that populates a cache
// entry before its watch session starts.
type SeedSource interface {
	ListRecords(ctx context.Context, target WatchTarget) ([]ObjectRecord, error)
	GetRecord(ctx context.Context, target WatchTarget) (ObjectRecord, error)
}

// ---------------------------------------------------------------------------
// Session manager
// ---------------------------------------------------------------------------

// SessionManagerOptions tunes session behaviour. Zero values fall
// back to the defaults below.
type SessionManagerOptions struct {
	// FlushInterval is the list-mode flush tick. The reference rate
	// is 10 flushes per second.
	FlushInterval time.Duration
	// StartTimeout bounds the backend watch-open call.
	StartTimeout time.Duration
	// StopTimeout bounds the fire-and-forget stop notification.
	StopTimeout time.Duration
}

const (
	defaultFlushInterval = 100 * time.Millisecond
	defaultStartTimeout  = 10 * time.Second
	defaultStopTimeout   = 5 * time.Second
)

// SessionManager owns watch session lifecycle: start, stop, and
// cleanup. It guarantees at most one live session per target and
// best-effort teardown. Each session runs one goroutine that drives
// all mutation of the session's cache key, so merges per key are
// serialized without further coordination.
type SessionManager struct {
	repo       WatchRepo
	seed       SeedSource
	store      *Store
	reconciler *Reconciler
	sessions   *SessionStore
	opts       SessionManagerOptions
	metrics    *watchMetrics

	seedFlights singleflight.Group
}

// NewSessionManager returns a SessionManager wired to the given
// backend, seed source, and cache store.
func NewSessionManager(repo WatchRepo, seed SeedSource, store *Store, reconciler *Reconciler, opts SessionManagerOptions) *SessionManager {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = defaultStartTimeout
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &SessionManager{
		repo:       repo,
		seed:       seed,
		store:      store,
		reconciler: reconciler,
		sessions:   NewSessionStore(),
		opts:       opts,
		metrics:    newWatchMetrics(),
	}
}

// Store returns the cache store the manager reconciles into.
func (m *SessionManager) Store() *Store {
	return m.store
}

// ActiveSessions returns the number of live sessions.
func (m *SessionManager) ActiveSessions() int {
	return m.sessions.Len()
}

// Seed performs the initial full fetch for the target's cache entry.
// Concurrent seeds for the same entry are deduplicated via
// singleflight; the fetch runs on a detached context so one caller's
// cancellation does not fail the other waiters.
func (m *SessionManager) Seed(ctx context.Context, target WatchTarget) error {
	if !target.Complete() {
		return nil
	}

	_, err, _ := m.seedFlights.Do(targetKey(target), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.StartTimeout)
		defer cancel()

		if target.SingleObject() {
			record, err := m.seed.GetRecord(fetchCtx, target)
			if err != nil {
				return nil, err
			}
			m.store.SeedObject(target.ObjectKey(), record)
			return nil, nil
		}

		records, err := m.seed.ListRecords(fetchCtx, target)
		if err != nil {
			return nil, err
		}
		m.store.SeedList(target.ListKey(), records)
		return nil, nil
	})
	return err
}

// Start activates a watch session for the target. An incomplete
// target is a no-op: it returns a nil handle and no error, leaving
// the caller simply not watching. Any prior live session for the same
// target is torn down first. A backend failure to open the watch is
// returned as *ErrStartFailed and is not retried here.
func (m *SessionManager) Start(ctx context.Context, target WatchTarget) (*SessionHandle, error) {
	if !target.Complete() {
		slog.Debug("ignoring watch start for incomplete target",
			"cluster", target.Cluster, "kind", target.Kind, "version", target.APIVersion)
		return nil, nil
	}

	if prev, ok := m.sessions.GetByTarget(target); ok {
		m.Stop(prev)
	}

	id := NewSessionID(target)
	h := &SessionHandle{
		ID:     id,
		Target: target,
		done:   make(chan struct{}),
	}
	h.state.Store(int32(SessionStarting))

	startCtx, cancelStart := context.WithTimeout(ctx, m.opts.StartTimeout)
	defer cancelStart()

	ch, err := m.repo.Start(startCtx, id, target)
	if err != nil {
		h.state.Store(int32(SessionStopped))
		close(h.done)
		slog.Warn("watch start failed", "session", id, "error", err)
		return nil, &ErrStartFailed{SessionID: id, Err: err}
	}

	// The session outlives the request that started it; teardown is
	// driven by Stop, not by the caller's context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.channel = ch
	h.cancel = cancel

	if prev := m.sessions.Put(h); prev != nil {
		m.Stop(prev)
	}

	h.watching.Store(true)
	h.state.Store(int32(SessionWatching))
	m.metrics.activeSessions.Add(context.Background(), 1)

	if target.SingleObject() {
		go m.runObject(runCtx, h)
	} else {
		go m.runList(runCtx, h)
	}

	slog.Info("watch session started", "session", id, "single_object", target.SingleObject())
	return h, nil
}

// Stop tears the session down: it silences the event channel, cancels
// the run loop, and issues a fire-and-forget stop notification to the
// backend. A failed notification is logged and swallowed because the
// session is gone locally regardless. Stop is safe on nil handles and
// safe to call more than once.
func (m *SessionManager) Stop(h *SessionHandle) {
	m.finish(h, true)
}

func (m *SessionManager) finish(h *SessionHandle, notifyBackend bool) {
	if h == nil {
		return
	}

	h.stopOnce.Do(func() {
		h.watching.Store(false)
		h.synced.Store(false)
		h.state.Store(int32(SessionStopped))

		// Closing first makes late-arriving pushes drop before the
		// run loop observes cancellation.
		h.channel.Close()
		h.cancel()
		m.sessions.Delete(h)
		m.metrics.activeSessions.Add(context.Background(), -1)

		if notifyBackend {
			go func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), m.opts.StopTimeout)
				defer cancel()
				if err := m.repo.Stop(stopCtx, h.ID); err != nil {
					slog.Warn("watch stop notification failed", "session", h.ID, "error", err)
				}
			}()
		}

		slog.Info("watch session stopped", "session", h.ID)
	})
}

// ---------------------------------------------------------------------------
// Run loops
// ---------------------------------------------------------------------------

// runList drives a list-mode session: arrivals accumulate in the
// Batcher and the cache is only touched on the flush tick, or once
// more when the stream ends.
func (m *SessionManager) runList(ctx context.Context, h *SessionHandle) {
	defer close(h.done)

	ch := h.channel
	key := h.Target.ListKey()
	batcher := &Batcher{}
	ticker := time.NewTicker(m.opts.FlushInterval)
	defer ticker.Stop()

	syncDone := ch.SyncComplete()

	pull := func() {
		if events := ch.Drain(); len(events) > 0 {
			batcher.Push(events...)
			m.metrics.eventsReceived.Add(context.Background(), int64(len(events)))
		}
	}
	flush := func() {
		events := batcher.Drain()
		if len(events) == 0 {
			return
		}
		m.reconciler.ApplyListBatch(key, CollapseLastWrite(events))
		m.metrics.batchesFlushed.Add(context.Background(), 1)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ch.Notify():
			pull()

		case <-syncDone:
			h.synced.Store(true)
			syncDone = nil

		case <-ch.StreamEnd():
			pull()
			if ctx.Err() == nil {
				flush()
			}
			m.finish(h, false)
			slog.Info("watch stream ended", "session", h.ID)
			return

		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			pull()
			flush()
		}
	}
}

// runObject drives a single-object session. There is no batching:
// each event reconciles immediately.
func (m *SessionManager) runObject(ctx context.Context, h *SessionHandle) {
	defer close(h.done)

	ch := h.channel
	key := h.Target.ObjectKey()
	syncDone := ch.SyncComplete()

	apply := func() {
		events := ch.Drain()
		if len(events) == 0 {
			return
		}
		m.metrics.eventsReceived.Add(context.Background(), int64(len(events)))
		for _, ev := range events {
			m.reconciler.ApplyObjectEvent(key, h.Target.Name, ev)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ch.Notify():
			apply()

		case <-syncDone:
			h.synced.Store(true)
			syncDone = nil

		case <-ch.StreamEnd():
			if ctx.Err() == nil {
				apply()
			}
			m.finish(h, false)
			slog.Info("watch stream ended", "session", h.ID)
			return
		}
	}
}
