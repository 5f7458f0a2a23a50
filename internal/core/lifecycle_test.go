package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeWatchRepo struct {
	mu       sync.Mutex
	channels map[string]*EventChannel
	last     *EventChannel
	startErr error
	stopErr  error
	stopped  []string
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{channels: make(map[string]*EventChannel)}
}

func (f *fakeWatchRepo) Start(_ context.Context, sessionID string, _ WatchTarget) (*EventChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	ch := NewEventChannel()
	f.channels[sessionID] = ch
	f.last = ch
	return ch, nil
}

func (f *fakeWatchRepo) Stop(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, sessionID)
	return f.stopErr
}

func (f *fakeWatchRepo) lastChannel() *EventChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeWatchRepo) stoppedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stopped)
}

type fakeSeedSource struct {
	records []ObjectRecord
	record  ObjectRecord
	err     error
}

func (f *fakeSeedSource) ListRecords(context.Context, WatchTarget) ([]ObjectRecord, error) {
	return f.records, f.err
}

func (f *fakeSeedSource) GetRecord(context.Context, WatchTarget) (ObjectRecord, error) {
	return f.record, f.err
}

func newTestManager(repo WatchRepo, seed SeedSource) *SessionManager {
	store := NewStore()
	return NewSessionManager(repo, seed, store, NewReconciler(store), SessionManagerOptions{
		FlushInterval: 5 * time.Millisecond,
		StartTimeout:  time.Second,
		StopTimeout:   time.Second,
	})
}

func listTarget() WatchTarget {
	return WatchTarget{Cluster: "default", APIVersion: "v1", Kind: "Pod", Namespace: "demo"}
}

func objectTarget() WatchTarget {
	t := listTarget()
	t.Name = "web-0"
	t.IncludeFullPayload = true
	return t
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSessionManager_StartAndStop(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	h, err := m.Start(context.Background(), listTarget())
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if h == nil || !h.IsWatching() {
		t.Fatal("expected a watching session handle")
	}
	if got := m.ActiveSessions(); got != 1 {
		t.Errorf("got %d active sessions, want 1", got)
	}

	m.Stop(h)

	if h.IsWatching() {
		t.Error("expected handle not watching after stop")
	}
	if got := m.ActiveSessions(); got != 0 {
		t.Errorf("got %d active sessions, want 0", got)
	}
	waitFor(t, func() bool { return repo.stoppedCount() == 1 }, "expected backend stop notification")

	// Stop is idempotent and safe on nil.
	m.Stop(h)
	m.Stop(nil)
}

func TestSessionManager_IncompleteTargetIsNoop(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	h, err := m.Start(context.Background(), WatchTarget{Cluster: "default", Kind: "Pod"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != nil {
		t.Error("expected nil handle for incomplete target")
	}
	if got := m.ActiveSessions(); got != 0 {
		t.Errorf("got %d active sessions, want 0", got)
	}
}

func TestSessionManager_StartFailure(t *testing.T) {
	repo := newFakeWatchRepo()
	repo.startErr = errors.New("backend down")
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	h, err := m.Start(context.Background(), listTarget())
	if h != nil {
		t.Error("expected nil handle on start failure")
	}

	var startFailed *ErrStartFailed
	if !errors.As(err, &startFailed) {
		t.Fatalf("got %T, want *ErrStartFailed", err)
	}
	if got := m.ActiveSessions(); got != 0 {
		t.Errorf("got %d active sessions, want 0", got)
	}
}

func TestSessionManager_SecondStartDisplacesFirst(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	first, err := m.Start(context.Background(), listTarget())
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Start(context.Background(), listTarget())
	if err != nil {
		t.Fatal(err)
	}

	if first.IsWatching() {
		t.Error("expected first session stopped by re-activation")
	}
	if !second.IsWatching() {
		t.Error("expected second session watching")
	}
	if got := m.ActiveSessions(); got != 1 {
		t.Errorf("got %d active sessions, want 1", got)
	}

	m.Stop(second)
}

func TestSessionManager_ListEventsFlushToStore(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()
	target := listTarget()

	h, err := m.Start(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop(h)

	ch := repo.lastChannel()
	ch.Push(ChangeEvent{Type: ChangeEventAdded, Object: ObjectRecord{ID: "a", Name: "stale"}})
	ch.Push(ChangeEvent{Type: ChangeEventModified, Object: ObjectRecord{ID: "a", Name: "fresh"}})
	ch.Push(ChangeEvent{Type: ChangeEventAdded, Object: ObjectRecord{ID: "b"}})

	waitFor(t, func() bool {
		records, _, ok := m.Store().ListSnapshot(target.ListKey())
		return ok && len(records) == 2
	}, "expected flushed batch in store")

	records, _, _ := m.Store().ListSnapshot(target.ListKey())
	if records[0].ID != "a" || records[0].Name != "fresh" {
		t.Errorf("got %+v, want collapsed latest write for a", records[0])
	}
}

func TestSessionManager_ObjectEventsApplyImmediately(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()
	target := objectTarget()

	h, err := m.Start(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop(h)

	ch := repo.lastChannel()
	ch.Push(ChangeEvent{
		Type:   ChangeEventModified,
		Object: ObjectRecord{ID: "u1", Name: "web-0", FullPayload: "payload"},
	})

	waitFor(t, func() bool {
		record, _, ok := m.Store().ObjectSnapshot(target.ObjectKey())
		return ok && record.FullPayload == "payload"
	}, "expected object payload in store")

	ch.Push(ChangeEvent{Type: ChangeEventDeleted, Object: ObjectRecord{ID: "u1", Name: "web-0"}})

	waitFor(t, func() bool {
		_, invalid, ok := m.Store().ObjectSnapshot(target.ObjectKey())
		return ok && invalid
	}, "expected entry invalidated by deletion")
}

func TestSessionManager_StopSilencesLateEvents(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()
	target := listTarget()

	h, err := m.Start(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}

	ch := repo.lastChannel()
	m.Stop(h)

	// Anything arriving after teardown must not reach the cache.
	ch.Push(ChangeEvent{Type: ChangeEventAdded, Object: ObjectRecord{ID: "late"}})
	time.Sleep(30 * time.Millisecond)

	if _, _, ok := m.Store().ListSnapshot(target.ListKey()); ok {
		t.Error("late event mutated the cache after stop")
	}
}

func TestSessionManager_StreamEndFinishesSession(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()
	target := listTarget()

	h, err := m.Start(context.Background(), target)
	if err != nil {
		t.Fatal(err)
	}

	ch := repo.lastChannel()
	ch.Push(ChangeEvent{Type: ChangeEventAdded, Object: ObjectRecord{ID: "a"}})
	ch.MarkStreamEnd()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected session to finish on stream end")
	}

	// The final pull and flush still lands before teardown.
	records, _, ok := m.Store().ListSnapshot(target.ListKey())
	if !ok || len(records) != 1 {
		t.Errorf("expected final flush, got ok=%v records=%v", ok, records)
	}

	if got := m.ActiveSessions(); got != 0 {
		t.Errorf("got %d active sessions, want 0", got)
	}
	// Backend ended the stream itself; no stop notification goes out.
	if got := repo.stoppedCount(); got != 0 {
		t.Errorf("got %d stop notifications, want 0", got)
	}
}

func TestSessionManager_SyncCompleteSetsFlag(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	h, err := m.Start(context.Background(), listTarget())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop(h)

	if h.IsInitialSyncComplete() {
		t.Fatal("sync flag set before backend completion")
	}

	repo.lastChannel().MarkSyncComplete()

	waitFor(t, h.IsInitialSyncComplete, "expected initial sync flag")
}

func TestSessionManager_StopErrorIsSwallowed(t *testing.T) {
	repo := newFakeWatchRepo()
	repo.stopErr = errors.New("backend gone")
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	h, err := m.Start(context.Background(), listTarget())
	if err != nil {
		t.Fatal(err)
	}

	m.Stop(h)

	// Teardown completed locally despite the backend failure.
	if got := m.ActiveSessions(); got != 0 {
		t.Errorf("got %d active sessions, want 0", got)
	}
	waitFor(t, func() bool { return repo.stoppedCount() == 1 }, "expected stop attempt")
}

func TestSessionManager_SessionsAreIsolatedPerTarget(t *testing.T) {
	repo := newFakeWatchRepo()
	m := newTestManager(repo, &fakeSeedSource{})
	defer m.Store().Close()

	podTarget := listTarget()
	svcTarget := listTarget()
	svcTarget.Kind = "Service"

	pods, err := m.Start(context.Background(), podTarget)
	if err != nil {
		t.Fatal(err)
	}
	svcs, err := m.Start(context.Background(), svcTarget)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.ActiveSessions(); got != 2 {
		t.Fatalf("got %d active sessions, want 2", got)
	}

	m.Stop(pods)

	if svcs.IsWatching() != true {
		t.Error("stopping one target must not affect another")
	}
	if got := m.ActiveSessions(); got != 1 {
		t.Errorf("got %d active sessions, want 1", got)
	}

	m.Stop(svcs)
}

func TestSessionManager_SeedPopulatesStore(t *testing.T) {
	repo := newFakeWatchRepo()
	seed := &fakeSeedSource{
		records: []ObjectRecord{{ID: "a"}, {ID: "b"}},
		record:  ObjectRecord{ID: "u1", Name: "web-0", FullPayload: "payload"},
	}
	m := newTestManager(repo, seed)
	defer m.Store().Close()

	if err := m.Seed(context.Background(), listTarget()); err != nil {
		t.Fatal(err)
	}
	records, _, ok := m.Store().ListSnapshot(listTarget().ListKey())
	if !ok || len(records) != 2 {
		t.Errorf("expected seeded list, got ok=%v records=%v", ok, records)
	}

	if err := m.Seed(context.Background(), objectTarget()); err != nil {
		t.Fatal(err)
	}
	record, _, ok := m.Store().ObjectSnapshot(objectTarget().ObjectKey())
	if !ok || record.FullPayload != "payload" {
		t.Errorf("expected seeded object, got ok=%v record=%+v", ok, record)
	}

	// Seeding an incomplete target does nothing.
	if err := m.Seed(context.Background(), WatchTarget{Kind: "Pod"}); err != nil {
		t.Errorf("incomplete seed returned error: %v", err)
	}
}
