package core

import (
	"testing"
)

func TestSessionStore_CRUD(t *testing.T) {
	store := NewSessionStore()
	target := WatchTarget{Cluster: "c", APIVersion: "v1", Kind: "Pod"}

	h := &SessionHandle{ID: "s1", Target: target, done: make(chan struct{})}
	if prev := store.Put(h); prev != nil {
		t.Fatalf("unexpected displaced handle %v", prev)
	}

	got, ok := store.Get("s1")
	if !ok || got.ID != "s1" {
		t.Fatalf("got %v ok=%v, want s1", got, ok)
	}

	got, ok = store.GetByTarget(target)
	if !ok || got.ID != "s1" {
		t.Fatalf("got %v ok=%v, want s1 by target", got, ok)
	}

	store.Delete(h)
	if _, ok := store.Get("s1"); ok {
		t.Error("expected handle gone after delete")
	}
	if _, ok := store.GetByTarget(target); ok {
		t.Error("expected target mapping gone after delete")
	}
}

func TestSessionStore_PutDisplacesSameTarget(t *testing.T) {
	store := NewSessionStore()
	target := WatchTarget{Cluster: "c", APIVersion: "v1", Kind: "Pod"}

	first := &SessionHandle{ID: "s1", Target: target, done: make(chan struct{})}
	second := &SessionHandle{ID: "s2", Target: target, done: make(chan struct{})}

	store.Put(first)
	prev := store.Put(second)

	if prev == nil || prev.ID != "s1" {
		t.Fatalf("got displaced %v, want s1", prev)
	}

	got, _ := store.GetByTarget(target)
	if got.ID != "s2" {
		t.Errorf("got %s by target, want s2", got.ID)
	}

	// The displaced handle lingers under its id until deleted.
	store.Delete(first)
	if got := store.Len(); got != 1 {
		t.Errorf("got %d handles, want 1", got)
	}
}

func TestSessionStore_DeleteStaleHandleKeepsCurrent(t *testing.T) {
	store := NewSessionStore()
	target := WatchTarget{Cluster: "c", APIVersion: "v1", Kind: "Pod"}

	first := &SessionHandle{ID: "s1", Target: target, done: make(chan struct{})}
	second := &SessionHandle{ID: "s2", Target: target, done: make(chan struct{})}

	store.Put(first)
	store.Put(second)

	// Deleting the displaced handle must not unmap the live one.
	store.Delete(first)

	got, ok := store.GetByTarget(target)
	if !ok || got.ID != "s2" {
		t.Errorf("got %v ok=%v, want s2 still mapped", got, ok)
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{SessionIdle, "idle"},
		{SessionStarting, "starting"},
		{SessionWatching, "watching"},
		{SessionStopped, "stopped"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
