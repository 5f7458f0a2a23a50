package kubernetes

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/ankitjain91/opspilot/internal/core"
)

type seedSource struct {
	kubernetes *Kubernetes
}

// NewSeedSource returns a core.SeedSource that loads initial snapshots
// through plain list and get calls.
func NewSeedSource(kubernetes *Kubernetes) core.SeedSource {
	return &seedSource{
		kubernetes: kubernetes,
	}
}

var _ core.SeedSource = (*seedSource)(nil)

func (s *seedSource) ListRecords(ctx context.Context, target core.WatchTarget) ([]core.ObjectRecord, error) {
	gvr, namespaced, err := s.kubernetes.resolveKind(ctx, target)
	if err != nil {
		return nil, err
	}

	client, err := s.kubernetes.dynamic(target.Cluster)
	if err != nil {
		return nil, err
	}

	namespace := namespaceFor(namespaced, target.Namespace)
	var list *unstructured.UnstructuredList
	if namespace != "" {
		list, err = client.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	} else {
		list, err = client.Resource(gvr).List(ctx, metav1.ListOptions{})
	}
	if err != nil {
		return nil, err
	}

	records := make([]core.ObjectRecord, 0, len(list.Items))
	for i := range list.Items {
		record, err := recordFromUnstructured(&list.Items[i], target.IncludeFullPayload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *seedSource) GetRecord(ctx context.Context, target core.WatchTarget) (core.ObjectRecord, error) {
	gvr, namespaced, err := s.kubernetes.resolveKind(ctx, target)
	if err != nil {
		return core.ObjectRecord{}, err
	}

	client, err := s.kubernetes.dynamic(target.Cluster)
	if err != nil {
		return core.ObjectRecord{}, err
	}

	namespace := namespaceFor(namespaced, target.Namespace)
	obj, err := client.Resource(gvr).Namespace(namespace).Get(ctx, target.Name, metav1.GetOptions{})
	if err != nil {
		return core.ObjectRecord{}, err
	}

	return recordFromUnstructured(obj, true)
}
