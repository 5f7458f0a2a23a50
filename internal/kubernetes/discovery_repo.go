package kubernetes

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/apiserver/pkg/cel/openapi/resolver"
	"k8s.io/kube-openapi/pkg/validation/spec"

	"github.com/ankitjain91/opspilot/internal/core"
)

type discoveryRepo struct {
	kubernetes *Kubernetes
}

// NewDiscoveryRepo returns a core.DiscoveryRepo backed by the
// Kubernetes discovery API.
func NewDiscoveryRepo(kubernetes *Kubernetes) core.DiscoveryRepo {
	return &discoveryRepo{
		kubernetes: kubernetes,
	}
}

var _ core.DiscoveryRepo = (*discoveryRepo)(nil)

func (r *discoveryRepo) List(_ context.Context, cluster string) ([]*metav1.APIResourceList, error) {
	client, err := r.kubernetes.discovery(cluster)
	if err != nil {
		return nil, err
	}

	_, resources, err := client.ServerGroupsAndResources()
	return resources, err
}

func (r *discoveryRepo) Validate(ctx context.Context, target core.WatchTarget) (core.ResourceIdentifier, error) {
	gvr, namespaced, err := r.kubernetes.resolveKind(ctx, target)
	if err != nil {
		return core.ResourceIdentifier{}, err
	}

	return core.ResourceIdentifier{
		Cluster:   target.Cluster,
		Group:     gvr.Group,
		Version:   gvr.Version,
		Resource:  gvr.Resource,
		Namespace: namespaceFor(namespaced, target.Namespace),
		Name:      target.Name,
	}, nil
}

func (r *discoveryRepo) Schema(_ context.Context, cluster, group, ver, kind string) (*spec.Schema, error) {
	client, err := r.kubernetes.discovery(cluster)
	if err != nil {
		return nil, err
	}

	schemaResolver := &resolver.ClientDiscoveryResolver{
		Discovery: client,
	}

	gvk := schema.GroupVersionKind{
		Group:   group,
		Version: ver,
		Kind:    kind,
	}

	return schemaResolver.ResolveSchema(gvk)
}

func (r *discoveryRepo) Version(_ context.Context, cluster string) (*version.Info, error) {
	client, err := r.kubernetes.discovery(cluster)
	if err != nil {
		return nil, err
	}
	return client.ServerVersion()
}
