package core

import (
	"testing"
)

func testListKey() ListKey {
	return ListKey{Cluster: "default", APIVersion: "v1", Kind: "Pod", Namespace: "demo"}
}

func testObjectKey() ObjectKey {
	return ObjectKey{Cluster: "default", Namespace: "demo", APIVersion: "v1", Kind: "Pod", Name: "web-0"}
}

func TestStore_SeedListDeduplicatesByID(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testListKey()

	s.SeedList(key, []ObjectRecord{
		{ID: "a", Name: "first"},
		{ID: "b", Name: "other"},
		{ID: "a", Name: "second"},
	})

	records, _, ok := s.ListSnapshot(key)
	if !ok {
		t.Fatal("expected list entry after seed")
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "a" || records[0].Name != "second" {
		t.Errorf("got %+v, want last record for a", records[0])
	}
}

func TestStore_ApplyListBatchUpsertAndRemove(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testListKey()

	s.SeedList(key, []ObjectRecord{{ID: "a"}, {ID: "b"}})
	_, rev, _ := s.ListSnapshot(key)

	changed := s.applyListBatch(key, []ChangeEvent{
		{Type: ChangeEventModified, Object: ObjectRecord{ID: "a", Name: "updated"}},
		{Type: ChangeEventAdded, Object: ObjectRecord{ID: "c"}},
		{Type: ChangeEventDeleted, Object: ObjectRecord{ID: "b"}},
	})
	if !changed {
		t.Fatal("expected batch to change the entry")
	}

	records, newRev, _ := s.ListSnapshot(key)
	if newRev != rev+1 {
		t.Errorf("got revision %d, want %d", newRev, rev+1)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "a" || records[0].Name != "updated" {
		t.Errorf("got %+v, want updated a first", records[0])
	}
	if records[1].ID != "c" {
		t.Errorf("got %+v, want c appended", records[1])
	}
}

func TestStore_ApplyListBatchDeleteAbsentIsNoop(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testListKey()

	s.SeedList(key, []ObjectRecord{{ID: "a"}})
	_, rev, _ := s.ListSnapshot(key)

	changed := s.applyListBatch(key, []ChangeEvent{
		{Type: ChangeEventDeleted, Object: ObjectRecord{ID: "ghost"}},
	})
	if changed {
		t.Error("expected absent-delete to leave the entry unchanged")
	}

	records, newRev, _ := s.ListSnapshot(key)
	if newRev != rev {
		t.Errorf("got revision %d, want unchanged %d", newRev, rev)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestStore_ApplyListBatchDeleteOnlyNeverCreatesEntry(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testListKey()

	s.applyListBatch(key, []ChangeEvent{
		{Type: ChangeEventDeleted, Object: ObjectRecord{ID: "a"}},
	})

	if _, _, ok := s.ListSnapshot(key); ok {
		t.Error("expected no entry from a deleted-only batch")
	}

	// A batch with at least one upsert does create the entry.
	s.applyListBatch(key, []ChangeEvent{
		{Type: ChangeEventDeleted, Object: ObjectRecord{ID: "a"}},
		{Type: ChangeEventAdded, Object: ObjectRecord{ID: "b"}},
	})

	records, _, ok := s.ListSnapshot(key)
	if !ok {
		t.Fatal("expected entry from a batch containing an upsert")
	}
	if len(records) != 1 || records[0].ID != "b" {
		t.Errorf("got %v, want only b", records)
	}
}

func TestStore_DropList(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testListKey()

	s.SeedList(key, []ObjectRecord{{ID: "a"}})
	s.DropList(key)

	if _, _, ok := s.ListSnapshot(key); ok {
		t.Error("expected entry gone after drop")
	}

	// Dropping an absent entry should not panic or publish.
	s.DropList(key)
}

func TestStore_ObjectSeedAndInvalidate(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testObjectKey()

	s.SeedObject(key, ObjectRecord{ID: "u1", Name: "web-0", FullPayload: "payload"})

	record, invalid, ok := s.ObjectSnapshot(key)
	if !ok || invalid {
		t.Fatalf("got ok=%v invalid=%v, want fresh entry", ok, invalid)
	}
	if record.FullPayload != "payload" {
		t.Errorf("got payload %q", record.FullPayload)
	}

	s.InvalidateObject(key)

	record, invalid, ok = s.ObjectSnapshot(key)
	if !ok || !invalid {
		t.Fatalf("got ok=%v invalid=%v, want invalid entry", ok, invalid)
	}
	// Invalidation keeps the payload; the consumer decides what to do.
	if record.FullPayload != "payload" {
		t.Errorf("invalidation emptied the payload: %q", record.FullPayload)
	}

	// Re-seeding clears invalidity.
	s.SeedObject(key, ObjectRecord{ID: "u1", Name: "web-0", FullPayload: "fresh"})
	_, invalid, _ = s.ObjectSnapshot(key)
	if invalid {
		t.Error("expected invalid flag cleared by re-seed")
	}
}

func TestStore_InvalidateAbsentObjectIsNoop(t *testing.T) {
	s := NewStore()
	defer s.Close()

	s.InvalidateObject(testObjectKey())

	if _, _, ok := s.ObjectSnapshot(testObjectKey()); ok {
		t.Error("expected no entry created by invalidating an absent key")
	}
}

func TestStore_EventsPublishedOnChange(t *testing.T) {
	s := NewStore()
	defer s.Close()
	key := testListKey()

	updates, cancel := s.Events().SubscribeFiltered(func(ev StoreEvent) bool {
		return ev.List == key
	})
	defer cancel()

	s.SeedList(key, []ObjectRecord{{ID: "a"}})

	ev := <-updates
	if ev.Kind != StoreListUpdated {
		t.Errorf("got %s, want LIST_UPDATED", ev.Kind)
	}
}
