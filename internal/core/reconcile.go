package core

import "log/slog"

// Reconciler applies change events to the shared cache store using
// the upsert/remove merge rules. It performs no I/O; reconciliation
// is synchronous with respect to the calling flush or event-arrival
// step. Exactly one session drives any given cache key at a time, so
// merges per key are serialized by construction.
type Reconciler struct {
	store *Store
}

// NewReconciler returns a Reconciler bound to the given store.
func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{store: store}
}

// ApplyListBatch merges one flush window's worth of events into the
// list entry under key. The batch is expected to be deduplicated
// (see CollapseLastWrite); events are applied in order regardless.
func (r *Reconciler) ApplyListBatch(key ListKey, batch []ChangeEvent) {
	if len(batch) == 0 {
		return
	}
	r.store.applyListBatch(key, batch)
}

// ApplyObjectEvent applies one event to the single-object entry under
// key. targetName is the watched object's name, used to guard against
// cross-object contamination.
//
// Deleted does not empty the cached payload; it marks the entry
// invalid so the consuming view's next read re-fetches and surfaces a
// not-found error. Added and Modified replace the payload wholesale,
// but only after validating the event: a name mismatch or a missing
// full payload cannot safely replace the cached object, so such
// events are discarded with a warning and leave the cache unchanged.
func (r *Reconciler) ApplyObjectEvent(key ObjectKey, targetName string, ev ChangeEvent) {
	switch ev.Type {
	case ChangeEventDeleted:
		r.store.InvalidateObject(key)

	case ChangeEventAdded, ChangeEventModified:
		if ev.Object.Name != targetName {
			slog.Warn("discarding watch event for unexpected object",
				"key", key.String(), "want", targetName, "got", ev.Object.Name)
			return
		}
		if ev.Object.FullPayload == "" {
			slog.Warn("discarding watch event without full payload",
				"key", key.String(), "type", string(ev.Type))
			return
		}
		r.store.SeedObject(key, ev.Object)

	default:
		slog.Warn("discarding watch event with unknown type",
			"key", key.String(), "type", string(ev.Type))
	}
}
