package kubernetes

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"github.com/ankitjain91/opspilot/internal/core"
)

// recordFromUnstructured converts a raw Kubernetes object into the
// cache-level ObjectRecord. The object UID is the merge key; a
// synthetic namespace/name key covers the rare server that omits it.
// When includePayload is set, the full object is serialized to YAML
// (with server-managed field noise stripped) for detail views.
func recordFromUnstructured(obj *unstructured.Unstructured, includePayload bool) (core.ObjectRecord, error) {
	record := core.ObjectRecord{
		ID:        string(obj.GetUID()),
		Name:      obj.GetName(),
		Namespace: obj.GetNamespace(),
		Fields: map[string]any{
			"apiVersion":        obj.GetAPIVersion(),
			"kind":              obj.GetKind(),
			"resourceVersion":   obj.GetResourceVersion(),
			"creationTimestamp": obj.GetCreationTimestamp().UTC(),
		},
	}

	if record.ID == "" {
		record.ID = obj.GetNamespace() + "/" + obj.GetName()
	}
	if labels := obj.GetLabels(); len(labels) > 0 {
		record.Fields["labels"] = labels
	}

	if includePayload {
		clean := obj.DeepCopy()
		unstructured.RemoveNestedField(clean.Object, "metadata", "managedFields")

		data, err := yaml.Marshal(clean.Object)
		if err != nil {
			return core.ObjectRecord{}, err
		}
		record.FullPayload = string(data)
	}

	return record, nil
}
