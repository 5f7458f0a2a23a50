package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/kube-openapi/pkg/validation/spec"
)

type fakeDiscoveryRepo struct {
	gitVersion   string
	versionCalls atomic.Int64
	schemaCalls  atomic.Int64
}

func (f *fakeDiscoveryRepo) List(context.Context, string) ([]*metav1.APIResourceList, error) {
	return []*metav1.APIResourceList{{GroupVersion: "v1"}}, nil
}

func (f *fakeDiscoveryRepo) Validate(_ context.Context, target WatchTarget) (ResourceIdentifier, error) {
	return ResourceIdentifier{Cluster: target.Cluster, Version: target.APIVersion}, nil
}

func (f *fakeDiscoveryRepo) Schema(context.Context, string, string, string, string) (*spec.Schema, error) {
	f.schemaCalls.Add(1)
	return &spec.Schema{}, nil
}

func (f *fakeDiscoveryRepo) Version(context.Context, string) (*version.Info, error) {
	f.versionCalls.Add(1)
	return &version.Info{GitVersion: f.gitVersion}, nil
}

func TestDiscoveryUseCase_SupportsWatchList(t *testing.T) {
	tests := []struct {
		gitVersion string
		want       bool
	}{
		{"v1.33.2", false},
		{"v1.34.0", true},
		{"v1.35.1", true},
	}

	for _, tt := range tests {
		repo := &fakeDiscoveryRepo{gitVersion: tt.gitVersion}
		uc := NewDiscoveryUseCase(repo, DiscoveryOptions{})

		got, err := uc.SupportsWatchList(context.Background(), "default")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.gitVersion, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.gitVersion, got, tt.want)
		}
	}
}

func TestDiscoveryUseCase_ServerVersionCached(t *testing.T) {
	repo := &fakeDiscoveryRepo{gitVersion: "v1.34.0"}
	uc := NewDiscoveryUseCase(repo, DiscoveryOptions{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := uc.ServerVersion(context.Background(), "default"); err != nil {
			t.Fatal(err)
		}
	}

	if got := repo.versionCalls.Load(); got != 1 {
		t.Errorf("got %d version fetches, want 1", got)
	}
}

func TestDiscoveryUseCase_ResolveSchemaCached(t *testing.T) {
	repo := &fakeDiscoveryRepo{gitVersion: "v1.34.0"}
	uc := NewDiscoveryUseCase(repo, DiscoveryOptions{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := uc.ResolveSchema(context.Background(), "default", "apps", "v1", "Deployment"); err != nil {
			t.Fatal(err)
		}
	}
	// A different GVK misses the cache.
	if _, err := uc.ResolveSchema(context.Background(), "default", "", "v1", "Pod"); err != nil {
		t.Fatal(err)
	}

	if got := repo.schemaCalls.Load(); got != 2 {
		t.Errorf("got %d schema fetches, want 2", got)
	}
}
