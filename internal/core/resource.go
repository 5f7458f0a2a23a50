package core

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/serializer/yaml"
)

// ListOptions carries the paging and filtering knobs for List.
type ListOptions struct {
	LabelSelector string
	FieldSelector string
	Limit         int64
	Continue      string
}

// ApplyOptions carries server-side apply parameters.
type ApplyOptions struct {
	Force        bool
	FieldManager string
}

// ResourceRepo abstracts resource CRUD against a cluster. Identifiers
// are discovery-validated before they reach this interface.
type ResourceRepo interface {
	List(ctx context.Context, id ResourceIdentifier, opts ListOptions) (*unstructured.UnstructuredList, error)
	Get(ctx context.Context, id ResourceIdentifier) (*unstructured.Unstructured, error)
	Apply(ctx context.Context, id ResourceIdentifier, data []byte, opts ApplyOptions) (*unstructured.Unstructured, error)
	Delete(ctx context.Context, id ResourceIdentifier, gracePeriodSeconds *int64) error
	RelatedEvents(ctx context.Context, id ResourceIdentifier) ([]corev1.Event, error)
}

// ResourceUseCase provides the console's resource operations: browse,
// inspect, edit, and delete live cluster objects.
type ResourceUseCase struct {
	discovery *DiscoveryUseCase
	resource  ResourceRepo
}

// NewResourceUseCase returns a ResourceUseCase wired to the given
// repos.
func NewResourceUseCase(discovery *DiscoveryUseCase, resource ResourceRepo) *ResourceUseCase {
	return &ResourceUseCase{
		discovery: discovery,
		resource:  resource,
	}
}

// ListResources returns a page of objects matching the target, with
// noisy server-managed metadata stripped.
func (uc *ResourceUseCase) ListResources(ctx context.Context, target WatchTarget, opts ListOptions) (*unstructured.UnstructuredList, error) {
	id, err := uc.discovery.Validate(ctx, target)
	if err != nil {
		return nil, err
	}

	list, err := uc.resource.List(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	for i := range list.Items {
		cleanObject(&list.Items[i])
	}

	return list, nil
}

// GetResource returns a single object by name.
func (uc *ResourceUseCase) GetResource(ctx context.Context, target WatchTarget) (*unstructured.Unstructured, error) {
	id, err := uc.discovery.Validate(ctx, target)
	if err != nil {
		return nil, err
	}
	return uc.resource.Get(ctx, id)
}

// ApplyResource performs a server-side apply from the YAML manifest.
func (uc *ResourceUseCase) ApplyResource(ctx context.Context, target WatchTarget, manifest []byte, opts ApplyOptions) (*unstructured.Unstructured, error) {
	id, err := uc.discovery.Validate(ctx, target)
	if err != nil {
		return nil, err
	}

	obj, err := fromYAML(manifest)
	if err != nil {
		return nil, err
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return nil, err
	}

	return uc.resource.Apply(ctx, id, data, opts)
}

// DeleteResource removes the named object with an optional grace
// period.
func (uc *ResourceUseCase) DeleteResource(ctx context.Context, target WatchTarget, gracePeriodSeconds *int64) error {
	id, err := uc.discovery.Validate(ctx, target)
	if err != nil {
		return err
	}
	return uc.resource.Delete(ctx, id, gracePeriodSeconds)
}

// DescribeResource returns the object together with its related
// Kubernetes events, equivalent to `kubectl describe`.
func (uc *ResourceUseCase) DescribeResource(ctx context.Context, target WatchTarget) (*unstructured.Unstructured, []corev1.Event, error) {
	id, err := uc.discovery.Validate(ctx, target)
	if err != nil {
		return nil, nil, err
	}

	obj, err := uc.resource.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	cleanObject(obj)

	events, err := uc.resource.RelatedEvents(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return obj, events, nil
}

// fromYAML decodes a YAML manifest into an unstructured object.
func fromYAML(manifest []byte) (*unstructured.Unstructured, error) {
	dec := yaml.NewDecodingSerializer(unstructured.UnstructuredJSONScheme)
	obj := &unstructured.Unstructured{}

	if _, _, err := dec.Decode(manifest, nil, obj); err != nil {
		return nil, &ErrInvalidInput{Field: "manifest", Message: err.Error()}
	}

	return obj, nil
}

// cleanObject strips managedFields and the kubectl last-applied
// annotation, which bloat payloads without informing the console.
func cleanObject(obj *unstructured.Unstructured) {
	unstructured.RemoveNestedField(obj.Object, "metadata", "managedFields")

	annotations := obj.GetAnnotations()
	if len(annotations) > 0 {
		if _, exists := annotations["kubectl.kubernetes.io/last-applied-configuration"]; exists {
			delete(annotations, "kubectl.kubernetes.io/last-applied-configuration")

			if len(annotations) == 0 {
				unstructured.RemoveNestedField(obj.Object, "metadata", "annotations")
			} else {
				obj.SetAnnotations(annotations)
			}
		}
	}
}
