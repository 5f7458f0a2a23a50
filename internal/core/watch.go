package core

import "strings"

// ChangeEventType represents the mutation kind carried by a change
// event. This is a domain-level type that decouples the core layer
// from k8s.io/apimachinery/pkg/watch.EventType.
type ChangeEventType string

const (
	ChangeEventAdded    ChangeEventType = "ADDED"
	ChangeEventModified ChangeEventType = "MODIFIED"
	ChangeEventDeleted  ChangeEventType = "DELETED"
)

// ObjectRecord is the cache-level view of a watched object. ID is the
// merge key (unique within kind+namespace); Name and Namespace are
// used only for mismatch validation in single-object mode. FullPayload
// carries the complete serialized object when the watch requested it,
// and is empty otherwise. Fields holds additional display attributes
// the console renders in list rows.
type ObjectRecord struct {
	ID          string
	Name        string
	Namespace   string
	FullPayload string
	Fields      map[string]any
}

// ChangeEvent is a single change notification from a watch stream.
type ChangeEvent struct {
	Type   ChangeEventType
	Object ObjectRecord
}

// WatchTarget is an immutable description of what to watch. A
// non-empty Name selects single-object mode; otherwise the target
// watches the whole collection, optionally filtered by Namespace.
// IncludeFullPayload requests the complete serialized object in each
// event, needed by detail views.
type WatchTarget struct {
	Cluster            string
	APIGroup           string
	APIVersion         string
	Kind               string
	Namespace          string
	Name               string
	IncludeFullPayload bool
}

// SingleObject reports whether the target names exactly one object.
func (t WatchTarget) SingleObject() bool {
	return t.Name != ""
}

// Complete reports whether the target carries every required
// discriminator. APIGroup may legitimately be empty (the core group),
// so it is not checked.
func (t WatchTarget) Complete() bool {
	return t.Cluster != "" && t.APIVersion != "" && t.Kind != ""
}

// ListKey returns the cache key for the target's list collection.
func (t WatchTarget) ListKey() ListKey {
	return ListKey{
		Cluster:    t.Cluster,
		APIGroup:   t.APIGroup,
		APIVersion: t.APIVersion,
		Kind:       t.Kind,
		Namespace:  t.Namespace,
	}
}

// ObjectKey returns the cache key for the target's single-object
// entry.
func (t WatchTarget) ObjectKey() ObjectKey {
	return ObjectKey{
		Cluster:    t.Cluster,
		Namespace:  t.Namespace,
		APIGroup:   t.APIGroup,
		APIVersion: t.APIVersion,
		Kind:       t.Kind,
		Name:       t.Name,
	}
}

// ListKey identifies one cached collection: all objects of a kind
// within an optional namespace filter on one cluster.
type ListKey struct {
	Cluster    string
	APIGroup   string
	APIVersion string
	Kind       string
	Namespace  string
}

func (k ListKey) String() string {
	return strings.Join([]string{k.Cluster, k.APIGroup, k.APIVersion, k.Kind, k.Namespace}, "/")
}

// ObjectKey identifies one cached single-object entry.
type ObjectKey struct {
	Cluster    string
	Namespace  string
	APIGroup   string
	APIVersion string
	Kind       string
	Name       string
}

func (k ObjectKey) String() string {
	return strings.Join([]string{k.Cluster, k.Namespace, k.APIGroup, k.APIVersion, k.Kind, k.Name}, "/")
}

// ResourceIdentifier names a concrete resource endpoint on a cluster:
// the discovery-validated group/version/resource triple plus optional
// namespace and name. It is produced by DiscoveryRepo validation and
// consumed by ResourceRepo operations.
type ResourceIdentifier struct {
	Cluster   string
	Group     string
	Version   string
	Resource  string
	Namespace string
	Name      string
}
