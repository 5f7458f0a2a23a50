package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Session state
// ---------------------------------------------------------------------------

// SessionState tracks a watch session through its lifecycle. Initial
// sync completion is a flag orthogonal to state, set once inside
// Watching.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionStarting
	SessionWatching
	SessionStopped
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionStarting:
		return "starting"
	case SessionWatching:
		return "watching"
	case SessionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Session handle
// ---------------------------------------------------------------------------

// SessionHandle represents one watch activation. It is created by
// SessionManager.Start and owned by the view surface that attached
// it; the owner calls Stop when interest ends.
type SessionHandle struct {
	// ID is the transport-safe session token.
	ID string
	// Target describes what the session watches.
	Target WatchTarget

	state    atomic.Int32
	watching atomic.Bool
	synced   atomic.Bool

	channel  *EventChannel
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// State returns the session's lifecycle state.
func (h *SessionHandle) State() SessionState {
	return SessionState(h.state.Load())
}

// IsWatching reports whether the session currently has a live stream.
func (h *SessionHandle) IsWatching() bool {
	return h.watching.Load()
}

// IsInitialSyncComplete reports whether the backend has finished
// replaying pre-existing state for this activation. It resets with
// every new Start because each activation gets a fresh handle.
func (h *SessionHandle) IsInitialSyncComplete() bool {
	return h.synced.Load()
}

// Done returns a channel closed when the session's run loop has
// fully exited.
func (h *SessionHandle) Done() <-chan struct{} {
	return h.done
}

// ---------------------------------------------------------------------------
// Session store
// ---------------------------------------------------------------------------

// SessionStore tracks active watch sessions, indexed by session id
// and by target so that re-activating a target can displace the prior
// session.
type SessionStore struct {
	mu       sync.RWMutex
	byID     map[string]*SessionHandle
	byTarget map[string]*SessionHandle
}

// NewSessionStore returns an initialised SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:     make(map[string]*SessionHandle),
		byTarget: make(map[string]*SessionHandle),
	}
}

// Put stores a session and returns the previous session for the same
// target, if any. The caller is responsible for stopping it.
func (s *SessionStore) Put(h *SessionHandle) *SessionHandle {
	key := targetKey(h.Target)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.byTarget[key]
	s.byID[h.ID] = h
	s.byTarget[key] = h
	return prev
}

// Get retrieves a session by id.
func (s *SessionStore) Get(id string) (*SessionHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byID[id]
	return h, ok
}

// GetByTarget retrieves the live session for a target, if any.
func (s *SessionStore) GetByTarget(t WatchTarget) (*SessionHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byTarget[targetKey(t)]
	return h, ok
}

// Delete removes a session. The target index is only cleared when it
// still points at this exact session, so a displaced session's late
// delete never evicts its replacement.
func (s *SessionStore) Delete(h *SessionHandle) {
	key := targetKey(h.Target)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byID, h.ID)
	if s.byTarget[key] == h {
		delete(s.byTarget, key)
	}
}

// Len returns the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// targetKey builds the activation-identity key: one live session is
// allowed per target.
func targetKey(t WatchTarget) string {
	if t.SingleObject() {
		return "object/" + t.ObjectKey().String()
	}
	return "list/" + t.ListKey().String()
}
