package core

import (
	"strings"
	"testing"
)

func TestNewSessionID_Charset(t *testing.T) {
	id := NewSessionID(WatchTarget{
		Cluster:    "prod cluster",
		APIGroup:   "apps",
		APIVersion: "v1",
		Kind:       "Deployment",
		Namespace:  "team@demo",
	})

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '/', r == ':', r == '_':
		default:
			t.Fatalf("id %q contains disallowed rune %q", id, r)
		}
	}
}

func TestNewSessionID_ModePrefix(t *testing.T) {
	list := NewSessionID(WatchTarget{Cluster: "c", APIVersion: "v1", Kind: "Pod"})
	if !strings.HasPrefix(list, "watch/list/") {
		t.Errorf("got %q, want list prefix", list)
	}

	object := NewSessionID(WatchTarget{Cluster: "c", APIVersion: "v1", Kind: "Pod", Name: "web-0"})
	if !strings.HasPrefix(object, "watch/object/") {
		t.Errorf("got %q, want object prefix", object)
	}
}

func TestNewSessionID_UniqueAcrossRapidCalls(t *testing.T) {
	target := WatchTarget{Cluster: "c", APIVersion: "v1", Kind: "Pod"}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID(target)
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}
