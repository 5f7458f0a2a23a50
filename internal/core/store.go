package core

import (
	"sync"

	"github.com/ankitjain91/opspilot/internal/event"
)

// StoreEventKind classifies a cache store notification.
type StoreEventKind string

const (
	StoreListUpdated       StoreEventKind = "LIST_UPDATED"
	StoreListDropped       StoreEventKind = "LIST_DROPPED"
	StoreObjectUpdated     StoreEventKind = "OBJECT_UPDATED"
	StoreObjectInvalidated StoreEventKind = "OBJECT_INVALIDATED"
	StoreObjectDropped     StoreEventKind = "OBJECT_DROPPED"
)

// StoreEvent is published on the store's bus whenever a cache entry
// changes. Exactly one of List or Object is meaningful, depending on
// Kind.
type StoreEvent struct {
	Kind   StoreEventKind
	List   ListKey
	Object ObjectKey
}

type listEntry struct {
	// order preserves first-insertion order of ids so repeated
	// snapshots of an unchanged entry are stable for the UI.
	order    []string
	items    map[string]ObjectRecord
	revision uint64
}

type objectEntry struct {
	record   ObjectRecord
	invalid  bool
	revision uint64
}

// Store is the shared keyed cache behind all console views: one entry
// per list collection and one per single-object detail view. Entries
// outlive watch sessions; they are mutated only by the Reconciler, by
// an explicit seed, or by an explicit drop. Consumers read snapshots
// and subscribe to change notifications on Events.
type Store struct {
	mu      sync.RWMutex
	lists   map[ListKey]*listEntry
	objects map[ObjectKey]*objectEntry
	bus     *event.Bus[StoreEvent]
}

// NewStore returns an empty Store with an open notification bus.
func NewStore() *Store {
	return &Store{
		lists:   make(map[ListKey]*listEntry),
		objects: make(map[ObjectKey]*objectEntry),
		bus:     event.New[StoreEvent](event.Options{Name: "cache_store"}),
	}
}

// Events returns the bus carrying store change notifications.
func (s *Store) Events() *event.Bus[StoreEvent] {
	return s.bus
}

// Close shuts down the notification bus.
func (s *Store) Close() {
	s.bus.Close()
}

// ---------------------------------------------------------------------------
// List entries
// ---------------------------------------------------------------------------

// SeedList replaces the collection under key with the given records,
// deduplicated by id (last record wins). This is the initial full
// fetch that populates a list view before its watch session starts.
func (s *Store) SeedList(key ListKey, records []ObjectRecord) {
	s.mu.Lock()
	entry := &listEntry{items: make(map[string]ObjectRecord, len(records))}
	for _, rec := range records {
		if _, ok := entry.items[rec.ID]; !ok {
			entry.order = append(entry.order, rec.ID)
		}
		entry.items[rec.ID] = rec
	}
	if prev, ok := s.lists[key]; ok {
		entry.revision = prev.revision + 1
	}
	s.lists[key] = entry
	s.mu.Unlock()

	s.bus.Publish(StoreEvent{Kind: StoreListUpdated, List: key})
}

// ListSnapshot returns a copy of the collection under key together
// with its revision. ok is false when no entry exists.
func (s *Store) ListSnapshot(key ListKey) (records []ObjectRecord, revision uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.lists[key]
	if !ok {
		return nil, 0, false
	}

	records = make([]ObjectRecord, 0, len(entry.order))
	for _, id := range entry.order {
		records = append(records, entry.items[id])
	}
	return records, entry.revision, true
}

// DropList removes the collection under key, if present.
func (s *Store) DropList(key ListKey) {
	s.mu.Lock()
	_, ok := s.lists[key]
	delete(s.lists, key)
	s.mu.Unlock()

	if ok {
		s.bus.Publish(StoreEvent{Kind: StoreListDropped, List: key})
	}
}

// applyListBatch merges a deduplicated batch into the collection under
// key. Added and Modified upsert; Deleted removes, silently skipping
// absent ids. A batch with no upserts never creates a missing entry.
// Reports whether the entry changed.
func (s *Store) applyListBatch(key ListKey, batch []ChangeEvent) bool {
	s.mu.Lock()

	entry, ok := s.lists[key]
	if !ok {
		if !hasUpsert(batch) {
			s.mu.Unlock()
			return false
		}
		entry = &listEntry{items: make(map[string]ObjectRecord)}
		s.lists[key] = entry
	}

	changed := false
	for _, ev := range batch {
		id := ev.Object.ID
		switch ev.Type {
		case ChangeEventAdded, ChangeEventModified:
			if _, exists := entry.items[id]; !exists {
				entry.order = append(entry.order, id)
			}
			entry.items[id] = ev.Object
			changed = true
		case ChangeEventDeleted:
			if _, exists := entry.items[id]; exists {
				delete(entry.items, id)
				entry.order = removeID(entry.order, id)
				changed = true
			}
		}
	}
	if changed {
		entry.revision++
	}
	s.mu.Unlock()

	if changed {
		s.bus.Publish(StoreEvent{Kind: StoreListUpdated, List: key})
	}
	return changed
}

// ---------------------------------------------------------------------------
// Single-object entries
// ---------------------------------------------------------------------------

// SeedObject stores the full payload for a detail view and clears any
// invalidity left over from a prior session.
func (s *Store) SeedObject(key ObjectKey, record ObjectRecord) {
	s.mu.Lock()
	entry, ok := s.objects[key]
	if !ok {
		entry = &objectEntry{}
		s.objects[key] = entry
	}
	entry.record = record
	entry.invalid = false
	entry.revision++
	s.mu.Unlock()

	s.bus.Publish(StoreEvent{Kind: StoreObjectUpdated, Object: key})
}

// ObjectSnapshot returns the cached record under key. invalid reports
// that the entry is stale and the consumer should re-fetch; ok is
// false when no entry exists at all.
func (s *Store) ObjectSnapshot(key ObjectKey) (record ObjectRecord, invalid, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.objects[key]
	if !ok {
		return ObjectRecord{}, false, false
	}
	return entry.record, entry.invalid, true
}

// InvalidateObject marks the entry under key stale without touching
// its payload. The consuming view's next read is expected to trigger
// a re-fetch, surfacing a deletion through its existing not-found
// error path.
func (s *Store) InvalidateObject(key ObjectKey) {
	s.mu.Lock()
	entry, ok := s.objects[key]
	if ok && !entry.invalid {
		entry.invalid = true
		entry.revision++
	} else {
		ok = false
	}
	s.mu.Unlock()

	if ok {
		s.bus.Publish(StoreEvent{Kind: StoreObjectInvalidated, Object: key})
	}
}

// DropObject removes the entry under key, if present.
func (s *Store) DropObject(key ObjectKey) {
	s.mu.Lock()
	_, ok := s.objects[key]
	delete(s.objects, key)
	s.mu.Unlock()

	if ok {
		s.bus.Publish(StoreEvent{Kind: StoreObjectDropped, Object: key})
	}
}

func hasUpsert(batch []ChangeEvent) bool {
	for _, ev := range batch {
		if ev.Type == ChangeEventAdded || ev.Type == ChangeEventModified {
			return true
		}
	}
	return false
}

func removeID(order []string, id string) []string {
	for i := range order {
		if order[i] == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
