package kubernetes

import (
	"strings"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func testPod() *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]any{
			"apiVersion": "v1",
			"kind":       "Pod",
			"metadata": map[string]any{
				"name":            "web-0",
				"namespace":       "demo",
				"uid":             "uid-123",
				"resourceVersion": "42",
				"labels": map[string]any{
					"app": "web",
				},
				"managedFields": []any{
					map[string]any{"manager": "kubelet"},
				},
			},
		},
	}
}

func TestRecordFromUnstructured_Basic(t *testing.T) {
	record, err := recordFromUnstructured(testPod(), false)
	if err != nil {
		t.Fatal(err)
	}

	if record.ID != "uid-123" {
		t.Errorf("got ID %q, want uid-123", record.ID)
	}
	if record.Name != "web-0" || record.Namespace != "demo" {
		t.Errorf("got %s/%s, want demo/web-0", record.Namespace, record.Name)
	}
	if record.FullPayload != "" {
		t.Error("expected no payload without includePayload")
	}
	if record.Fields["kind"] != "Pod" || record.Fields["resourceVersion"] != "42" {
		t.Errorf("unexpected fields: %v", record.Fields)
	}
	labels, ok := record.Fields["labels"].(map[string]string)
	if !ok || labels["app"] != "web" {
		t.Errorf("unexpected labels field: %v", record.Fields["labels"])
	}
}

func TestRecordFromUnstructured_PayloadStripsManagedFields(t *testing.T) {
	record, err := recordFromUnstructured(testPod(), true)
	if err != nil {
		t.Fatal(err)
	}

	if record.FullPayload == "" {
		t.Fatal("expected payload with includePayload")
	}
	if strings.Contains(record.FullPayload, "managedFields") {
		t.Error("payload still carries managedFields")
	}
	if !strings.Contains(record.FullPayload, "web-0") {
		t.Error("payload missing object name")
	}
}

func TestRecordFromUnstructured_FallbackIDWithoutUID(t *testing.T) {
	obj := testPod()
	unstructured.RemoveNestedField(obj.Object, "metadata", "uid")

	record, err := recordFromUnstructured(obj, false)
	if err != nil {
		t.Fatal(err)
	}
	if record.ID != "demo/web-0" {
		t.Errorf("got ID %q, want demo/web-0", record.ID)
	}
}
