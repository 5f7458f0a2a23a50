package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/ankitjain91/opspilot/internal/core"
)

// initialEventsEndAnnotation marks the synthetic bookmark the API server
// sends once all initial events of a streaming list have been delivered.
const initialEventsEndAnnotation = "k8s.io/initial-events-end"

type watchRepo struct {
	kubernetes *Kubernetes
	discovery  *core.DiscoveryUseCase

	mu       sync.Mutex
	watchers map[string]watch.Interface
}

// NewWatchRepo returns a core.WatchRepo that streams change events from
// the Kubernetes watch API.
func NewWatchRepo(kubernetes *Kubernetes, discovery *core.DiscoveryUseCase) core.WatchRepo {
	return &watchRepo{
		kubernetes: kubernetes,
		discovery:  discovery,
		watchers:   map[string]watch.Interface{},
	}
}

var _ core.WatchRepo = (*watchRepo)(nil)

func (r *watchRepo) Start(ctx context.Context, sessionID string, target core.WatchTarget) (*core.EventChannel, error) {
	gvr, namespaced, err := r.kubernetes.resolveKind(ctx, target)
	if err != nil {
		return nil, err
	}

	client, err := r.kubernetes.dynamic(target.Cluster)
	if err != nil {
		return nil, err
	}

	opts := metav1.ListOptions{}
	if target.SingleObject() {
		opts.FieldSelector = "metadata.name=" + target.Name
	}

	streamingList := false
	if ok, err := r.discovery.SupportsWatchList(ctx, target.Cluster); err != nil {
		slog.Warn("Streaming list probe failed, falling back to plain watch", "cluster", target.Cluster, "error", err)
	} else if ok {
		streamingList = true
		sendInitial := true
		opts.SendInitialEvents = &sendInitial
		opts.AllowWatchBookmarks = true
		opts.ResourceVersionMatch = metav1.ResourceVersionMatchNotOlderThan
	}

	// The stream must outlive the start deadline. The caller tears it
	// down through Stop, not through ctx.
	streamCtx := context.WithoutCancel(ctx)

	var watcher watch.Interface
	namespace := namespaceFor(namespaced, target.Namespace)
	if namespace != "" {
		watcher, err = client.Resource(gvr).Namespace(namespace).Watch(streamCtx, opts)
	} else {
		watcher, err = client.Resource(gvr).Watch(streamCtx, opts)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.watchers[sessionID] = watcher
	r.mu.Unlock()

	channel := core.NewEventChannel()
	if !streamingList {
		// Without streaming list support the watch starts at the
		// current state and the seeded snapshot already is the sync.
		channel.MarkSyncComplete()
	}

	go r.pump(sessionID, target, watcher, channel)

	return channel, nil
}

func (r *watchRepo) Stop(_ context.Context, sessionID string) error {
	r.mu.Lock()
	watcher, ok := r.watchers[sessionID]
	if ok {
		delete(r.watchers, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return &core.ErrSessionNotFound{ID: sessionID}
	}

	watcher.Stop()
	return nil
}

// pump translates raw watch events into change events until the result
// channel closes.
func (r *watchRepo) pump(sessionID string, target core.WatchTarget, watcher watch.Interface, channel *core.EventChannel) {
	includePayload := target.IncludeFullPayload || target.SingleObject()

	for ev := range watcher.ResultChan() {
		obj, ok := ev.Object.(*unstructured.Unstructured)
		if !ok {
			slog.Warn("Discarding watch event with unexpected object type",
				"session_id", sessionID,
				"type", ev.Type,
				"object", fmt.Sprintf("%T", ev.Object),
			)
			continue
		}

		switch ev.Type {
		case watch.Added, watch.Modified, watch.Deleted:
			record, err := recordFromUnstructured(obj, includePayload)
			if err != nil {
				slog.Warn("Discarding undecodable watch event", "session_id", sessionID, "error", err)
				continue
			}
			channel.Push(core.ChangeEvent{
				Type:   changeEventType(ev.Type),
				Object: record,
			})
		case watch.Bookmark:
			if obj.GetAnnotations()[initialEventsEndAnnotation] == "true" {
				channel.MarkSyncComplete()
			}
		case watch.Error:
			slog.Warn("Watch stream reported an error event", "session_id", sessionID, "object", ev.Object)
		}
	}

	r.mu.Lock()
	delete(r.watchers, sessionID)
	r.mu.Unlock()

	channel.MarkStreamEnd()
}

func changeEventType(t watch.EventType) core.ChangeEventType {
	switch t {
	case watch.Added:
		return core.ChangeEventAdded
	case watch.Modified:
		return core.ChangeEventModified
	default:
		return core.ChangeEventDeleted
	}
}
