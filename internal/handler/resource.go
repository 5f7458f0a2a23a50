package handler

import (
	"net/http"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/ankitjain91/opspilot/internal/core"
)

// ResourceHandler serves the console's request/response surface:
// discovery, schema resolution, and resource CRUD. The live watch
// surface lives in WatchHandler.
type ResourceHandler struct {
	resource  *core.ResourceUseCase
	discovery *core.DiscoveryUseCase
}

// NewResourceHandler returns a ResourceHandler backed by the given
// use-cases.
func NewResourceHandler(resource *core.ResourceUseCase, discovery *core.DiscoveryUseCase) *ResourceHandler {
	return &ResourceHandler{
		resource:  resource,
		discovery: discovery,
	}
}

// Register mounts the handler's routes on mux.
func (h *ResourceHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/discovery", h.listAPIResources)
	mux.HandleFunc("GET /api/v1/schema", h.schema)
	mux.HandleFunc("GET /api/v1/resources", h.list)
	mux.HandleFunc("GET /api/v1/resource", h.get)
	mux.HandleFunc("GET /api/v1/resource/describe", h.describe)
	mux.HandleFunc("POST /api/v1/resource/apply", h.apply)
	mux.HandleFunc("DELETE /api/v1/resource", h.delete)
}

func (h *ResourceHandler) listAPIResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.discovery.ListAPIResources(r.Context(), r.URL.Query().Get("cluster"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"apiResources": resources})
}

func (h *ResourceHandler) schema(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resolved, err := h.discovery.ResolveSchema(
		r.Context(),
		q.Get("cluster"),
		q.Get("group"),
		q.Get("version"),
		q.Get("kind"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (h *ResourceHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)

	list, err := h.resource.ListResources(r.Context(), targetFromQuery(r), core.ListOptions{
		LabelSelector: q.Get("labelSelector"),
		FieldSelector: q.Get("fieldSelector"),
		Limit:         limit,
		Continue:      q.Get("continue"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		ResourceVersion: list.GetResourceVersion(),
		Continue:        list.GetContinue(),
		Items:           list.Items,
	})
}

func (h *ResourceHandler) get(w http.ResponseWriter, r *http.Request) {
	obj, err := h.resource.GetResource(r.Context(), targetFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj.Object)
}

func (h *ResourceHandler) describe(w http.ResponseWriter, r *http.Request) {
	obj, events, err := h.resource.DescribeResource(r.Context(), targetFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describeResponse{
		Resource: obj.Object,
		Events:   events,
	})
}

func (h *ResourceHandler) apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	obj, err := h.resource.ApplyResource(r.Context(), req.Target.toDomain(), []byte(req.Manifest), core.ApplyOptions{
		Force:        req.Force,
		FieldManager: req.FieldManager,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj.Object)
}

func (h *ResourceHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.resource.DeleteResource(r.Context(), targetFromQuery(r), queryInt64(r, "gracePeriodSeconds"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listResponse struct {
	ResourceVersion string                      `json:"resourceVersion"`
	Continue        string                      `json:"continue,omitempty"`
	Items           []unstructured.Unstructured `json:"items"`
}

type describeResponse struct {
	Resource map[string]any `json:"resource"`
	Events   []corev1.Event `json:"events"`
}

type applyRequest struct {
	Target       watchTargetRequest `json:"target"`
	Manifest     string             `json:"manifest"`
	Force        bool               `json:"force,omitempty"`
	FieldManager string             `json:"fieldManager,omitempty"`
}

// watchTargetRequest is the wire form of a watch target. The domain
// type stays free of serialisation tags.
type watchTargetRequest struct {
	Cluster            string `json:"cluster"`
	Group              string `json:"group,omitempty"`
	Version            string `json:"version"`
	Kind               string `json:"kind"`
	Namespace          string `json:"namespace,omitempty"`
	Name               string `json:"name,omitempty"`
	IncludeFullPayload bool   `json:"fullPayload,omitempty"`
}

func (t watchTargetRequest) toDomain() core.WatchTarget {
	return core.WatchTarget{
		Cluster:            t.Cluster,
		APIGroup:           t.Group,
		APIVersion:         t.Version,
		Kind:               t.Kind,
		Namespace:          t.Namespace,
		Name:               t.Name,
		IncludeFullPayload: t.IncludeFullPayload,
	}
}
