package kubernetes

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"

	"github.com/ankitjain91/opspilot/internal/core"
)

type resourceRepo struct {
	kubernetes *Kubernetes
}

// NewResourceRepo returns a core.ResourceRepo backed by the dynamic
// client.
func NewResourceRepo(kubernetes *Kubernetes) core.ResourceRepo {
	return &resourceRepo{
		kubernetes: kubernetes,
	}
}

var _ core.ResourceRepo = (*resourceRepo)(nil)

func (r *resourceRepo) List(ctx context.Context, id core.ResourceIdentifier, opts core.ListOptions) (*unstructured.UnstructuredList, error) {
	client, err := r.kubernetes.dynamic(id.Cluster)
	if err != nil {
		return nil, err
	}

	listOpts := metav1.ListOptions{
		LabelSelector: opts.LabelSelector,
		FieldSelector: opts.FieldSelector,
		Limit:         opts.Limit,
		Continue:      opts.Continue,
	}

	return client.Resource(gvrOf(id)).Namespace(id.Namespace).List(ctx, listOpts)
}

func (r *resourceRepo) Get(ctx context.Context, id core.ResourceIdentifier) (*unstructured.Unstructured, error) {
	client, err := r.kubernetes.dynamic(id.Cluster)
	if err != nil {
		return nil, err
	}

	return client.Resource(gvrOf(id)).Namespace(id.Namespace).Get(ctx, id.Name, metav1.GetOptions{})
}

func (r *resourceRepo) Apply(ctx context.Context, id core.ResourceIdentifier, data []byte, opts core.ApplyOptions) (*unstructured.Unstructured, error) {
	client, err := r.kubernetes.dynamic(id.Cluster)
	if err != nil {
		return nil, err
	}

	// Server-side apply requires a field manager.
	manager := opts.FieldManager
	if manager == "" {
		manager = "opspilot"
	}

	patchOpts := metav1.PatchOptions{
		Force:        &opts.Force,
		FieldManager: manager,
	}

	return client.Resource(gvrOf(id)).Namespace(id.Namespace).Patch(ctx, id.Name, types.ApplyPatchType, data, patchOpts)
}

func (r *resourceRepo) Delete(ctx context.Context, id core.ResourceIdentifier, gracePeriodSeconds *int64) error {
	client, err := r.kubernetes.dynamic(id.Cluster)
	if err != nil {
		return err
	}

	opts := metav1.DeleteOptions{
		GracePeriodSeconds: gracePeriodSeconds,
	}

	return client.Resource(gvrOf(id)).Namespace(id.Namespace).Delete(ctx, id.Name, opts)
}

func (r *resourceRepo) RelatedEvents(ctx context.Context, id core.ResourceIdentifier) ([]corev1.Event, error) {
	client, err := r.kubernetes.clientset(id.Cluster)
	if err != nil {
		return nil, err
	}

	selector := fmt.Sprintf("involvedObject.name=%s", id.Name)
	if id.Namespace != "" {
		selector += fmt.Sprintf(",involvedObject.namespace=%s", id.Namespace)
	}

	list, err := client.CoreV1().Events(id.Namespace).List(ctx, metav1.ListOptions{FieldSelector: selector})
	if err != nil {
		return nil, err
	}

	return list.Items, nil
}

func gvrOf(id core.ResourceIdentifier) schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    id.Group,
		Version:  id.Version,
		Resource: id.Resource,
	}
}
