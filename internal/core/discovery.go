package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

// DiscoveryRepo abstracts the cluster's discovery API: resource
// enumeration for navigation, kind-to-resource validation for watch
// targets, OpenAPI schemas for the editor, and the server version.
type DiscoveryRepo interface {
	List(ctx context.Context, cluster string) ([]*metav1.APIResourceList, error)
	Validate(ctx context.Context, target WatchTarget) (ResourceIdentifier, error)
	Schema(ctx context.Context, cluster, group, version, kind string) (*spec.Schema, error)
	Version(ctx context.Context, cluster string) (*version.Info, error)
}

// minWatchListVersion is the minimum Kubernetes version that supports
// the WatchList streaming feature (beta, default-on since 1.34).
// https://kubernetes.io/docs/reference/using-api/api-concepts/#streaming-lists
var minWatchListVersion = semver.MustParse("v1.34.0")

type schemaCacheEntry struct {
	schema    *spec.Schema
	expiresAt time.Time
}

type versionCacheEntry struct {
	version   *version.Info
	expiresAt time.Time
}

// singleflightFetchTimeout is the maximum time a cache-miss fetch is
// allowed to run. It uses context.WithoutCancel so that a single
// caller's cancellation does not fail all singleflight waiters.
const singleflightFetchTimeout = 30 * time.Second

// DiscoveryUseCase provides TTL-cached, singleflight-deduplicated
// access to discovery data. Schema and version lookups hit every
// detail view and every watch activation, so redundant round trips
// are collapsed here.
type DiscoveryUseCase struct {
	repo DiscoveryRepo
	ttl  time.Duration

	mu             sync.RWMutex
	schemaCache    map[string]*schemaCacheEntry
	versionCache   map[string]*versionCacheEntry
	schemaFlights  singleflight.Group
	versionFlights singleflight.Group
}

// DiscoveryOptions tunes the discovery cache.
type DiscoveryOptions struct {
	// CacheTTL bounds how long schemas and server versions are
	// served from memory.
	CacheTTL time.Duration
}

const defaultDiscoveryCacheTTL = 10 * time.Minute

// NewDiscoveryUseCase returns a DiscoveryUseCase caching results for
// the configured TTL.
func NewDiscoveryUseCase(repo DiscoveryRepo, opts DiscoveryOptions) *DiscoveryUseCase {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultDiscoveryCacheTTL
	}
	return &DiscoveryUseCase{
		repo:         repo,
		ttl:          opts.CacheTTL,
		schemaCache:  make(map[string]*schemaCacheEntry),
		versionCache: make(map[string]*versionCacheEntry),
	}
}

// ListAPIResources returns the full list of API resources on the
// cluster, for building the console's navigation tree.
func (uc *DiscoveryUseCase) ListAPIResources(ctx context.Context, cluster string) ([]*metav1.APIResourceList, error) {
	return uc.repo.List(ctx, cluster)
}

// Validate resolves the target's kind to its discovery-validated
// resource endpoint.
func (uc *DiscoveryUseCase) Validate(ctx context.Context, target WatchTarget) (ResourceIdentifier, error) {
	return uc.repo.Validate(ctx, target)
}

// ResolveSchema fetches the OpenAPI schema for the given GVK. Results
// are cached for the configured TTL and concurrent requests for the
// same key are deduplicated via singleflight.
func (uc *DiscoveryUseCase) ResolveSchema(ctx context.Context, cluster, group, ver, kind string) (*spec.Schema, error) {
	key := strings.Join([]string{cluster, group, ver, kind}, "/")

	uc.mu.RLock()
	entry, ok := uc.schemaCache[key]
	uc.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.schema, nil
	}

	v, err, _ := uc.schemaFlights.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), singleflightFetchTimeout)
		defer cancel()

		resolved, err := uc.repo.Schema(fetchCtx, cluster, group, ver, kind)
		if err != nil {
			return nil, err
		}

		uc.mu.Lock()
		uc.evictExpired()
		uc.schemaCache[key] = &schemaCacheEntry{
			schema:    resolved,
			expiresAt: time.Now().Add(uc.ttl),
		}
		uc.mu.Unlock()

		return resolved, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*spec.Schema), nil
}

// ServerVersion returns the cached Kubernetes version for the
// cluster.
func (uc *DiscoveryUseCase) ServerVersion(ctx context.Context, cluster string) (*version.Info, error) {
	uc.mu.RLock()
	entry, ok := uc.versionCache[cluster]
	uc.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.version, nil
	}

	v, err, _ := uc.versionFlights.Do(cluster, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), singleflightFetchTimeout)
		defer cancel()

		info, err := uc.repo.Version(fetchCtx, cluster)
		if err != nil {
			return nil, err
		}

		uc.mu.Lock()
		uc.evictExpired()
		uc.versionCache[cluster] = &versionCacheEntry{
			version:   info,
			expiresAt: time.Now().Add(uc.ttl),
		}
		uc.mu.Unlock()

		return info, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*version.Info), nil
}

// SupportsWatchList reports whether the cluster can stream initial
// list state through the watch itself (Kubernetes >= 1.34), which
// lets the watch adapter skip a separate list round trip.
func (uc *DiscoveryUseCase) SupportsWatchList(ctx context.Context, cluster string) (bool, error) {
	info, err := uc.ServerVersion(ctx, cluster)
	if err != nil {
		return false, err
	}

	kubeVersion, err := semver.NewVersion(info.String())
	if err != nil {
		return false, err
	}

	return kubeVersion.GreaterThanEqual(minWatchListVersion), nil
}

// evictExpired removes expired entries from both caches. Must be
// called with mu held for writing.
func (uc *DiscoveryUseCase) evictExpired() {
	now := time.Now()
	for key, entry := range uc.schemaCache {
		if now.After(entry.expiresAt) {
			delete(uc.schemaCache, key)
		}
	}
	for key, entry := range uc.versionCache {
		if now.After(entry.expiresAt) {
			delete(uc.versionCache, key)
		}
	}
}
