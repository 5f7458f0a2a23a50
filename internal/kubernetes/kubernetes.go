// Package kubernetes adapts the core repository interfaces to
// client-go: dynamic CRUD, discovery, typed event listing, and the
// watch stream backend.
package kubernetes

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	clientset "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ankitjain91/opspilot/internal/config"
	"github.com/ankitjain91/opspilot/internal/core"
)

// defaultCluster is the cluster name that maps to the kubeconfig's
// current context.
const defaultCluster = "default"

// Kubernetes builds and caches client-go clients per cluster. The
// cluster name selects a kubeconfig context; "default" uses the
// current context, or the in-cluster service account when no
// kubeconfig is reachable.
type Kubernetes struct {
	conf *config.Config

	mu      sync.Mutex
	configs map[string]*rest.Config
	gvrs    map[string]gvrEntry
}

type gvrEntry struct {
	gvr        schema.GroupVersionResource
	namespaced bool
}

// New returns a Kubernetes client factory.
func New(conf *config.Config) *Kubernetes {
	return &Kubernetes{
		conf:    conf,
		configs: make(map[string]*rest.Config),
		gvrs:    make(map[string]gvrEntry),
	}
}

func (m *Kubernetes) restConfig(cluster string) (*rest.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg, ok := m.configs[cluster]; ok {
		return cfg, nil
	}

	cfg, err := m.buildConfig(cluster)
	if err != nil {
		return nil, err
	}

	m.configs[cluster] = cfg
	return cfg, nil
}

func (m *Kubernetes) buildConfig(cluster string) (*rest.Config, error) {
	kubeconfig := m.conf.ConsoleKubeconfig()
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")
	}

	// In-cluster only applies when no kubeconfig was asked for and
	// the default context is targeted.
	if kubeconfig == "" && cluster == defaultCluster {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfig

	overrides := &clientcmd.ConfigOverrides{}
	if cluster != defaultCluster {
		overrides.CurrentContext = cluster
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kube config for cluster %q: %w", cluster, err)
	}
	return cfg, nil
}

func (m *Kubernetes) dynamic(cluster string) (*dynamic.DynamicClient, error) {
	cfg, err := m.restConfig(cluster)
	if err != nil {
		return nil, err
	}
	return dynamic.NewForConfig(cfg)
}

func (m *Kubernetes) discovery(cluster string) (*discovery.DiscoveryClient, error) {
	cfg, err := m.restConfig(cluster)
	if err != nil {
		return nil, err
	}
	return discovery.NewDiscoveryClientForConfig(cfg)
}

func (m *Kubernetes) clientset(cluster string) (*clientset.Clientset, error) {
	cfg, err := m.restConfig(cluster)
	if err != nil {
		return nil, err
	}
	return clientset.NewForConfig(cfg)
}

// resolveKind maps a target's kind to its discovery-validated
// resource endpoint. Kind-to-resource mappings are stable for a
// server's lifetime, so they are cached without expiry.
func (m *Kubernetes) resolveKind(_ context.Context, target core.WatchTarget) (schema.GroupVersionResource, bool, error) {
	key := strings.Join([]string{target.Cluster, target.APIGroup, target.APIVersion, target.Kind}, "/")

	m.mu.Lock()
	entry, ok := m.gvrs[key]
	m.mu.Unlock()
	if ok {
		return entry.gvr, entry.namespaced, nil
	}

	client, err := m.discovery(target.Cluster)
	if err != nil {
		return schema.GroupVersionResource{}, false, err
	}

	gv := schema.GroupVersion{Group: target.APIGroup, Version: target.APIVersion}
	resources, err := client.ServerResourcesForGroupVersion(gv.String())
	if err != nil {
		return schema.GroupVersionResource{}, false, err
	}

	for i := range resources.APIResources {
		r := &resources.APIResources[i]
		// Subresources like pods/status carry a slash; only top-level
		// resources are watchable collections.
		if r.Kind != target.Kind || strings.Contains(r.Name, "/") {
			continue
		}

		entry = gvrEntry{gvr: gv.WithResource(r.Name), namespaced: r.Namespaced}
		m.mu.Lock()
		m.gvrs[key] = entry
		m.mu.Unlock()
		return entry.gvr, entry.namespaced, nil
	}

	return schema.GroupVersionResource{}, false,
		&core.ErrInvalidInput{Field: "kind", Message: fmt.Sprintf("unable to recognize kind %s in %s", target.Kind, gv)}
}

// namespaceFor returns the namespace argument for a dynamic client
// call: the target namespace for namespaced resources and
// NamespaceAll semantics (empty) otherwise.
func namespaceFor(namespaced bool, namespace string) string {
	if !namespaced {
		return metav1.NamespaceAll
	}
	return namespace
}
