package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/ankitjain91/opspilot/internal/core"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid input",
			err:  &core.ErrInvalidInput{Field: "manifest", Message: "bad yaml"},
			want: http.StatusBadRequest,
		},
		{
			name: "session not found",
			err:  &core.ErrSessionNotFound{ID: "s1"},
			want: http.StatusNotFound,
		},
		{
			name: "start failed",
			err:  &core.ErrStartFailed{SessionID: "s1", Err: errors.New("backend down")},
			want: http.StatusBadGateway,
		},
		{
			name: "kubernetes not found",
			err:  apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "web-0"),
			want: http.StatusNotFound,
		},
		{
			name: "kubernetes forbidden",
			err:  apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "web-0", errors.New("rbac")),
			want: http.StatusForbidden,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusOf(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTargetFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/v1/resource?cluster=prod&group=apps&version=v1&kind=Deployment&namespace=demo&name=web&fullPayload=true", nil)

	target := targetFromQuery(r)
	if target.Cluster != "prod" || target.APIGroup != "apps" || target.APIVersion != "v1" {
		t.Errorf("unexpected target %+v", target)
	}
	if target.Kind != "Deployment" || target.Namespace != "demo" || target.Name != "web" {
		t.Errorf("unexpected target %+v", target)
	}
	if !target.IncludeFullPayload {
		t.Error("expected full payload flag set")
	}
}

func TestReadJSON_RejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/resource/apply",
		strings.NewReader(`{"manifest": "kind: Pod", "bogus": true}`))

	var req applyRequest
	err := readJSON(r, &req)

	var invalidInput *core.ErrInvalidInput
	if !errors.As(err, &invalidInput) {
		t.Fatalf("got %T, want *core.ErrInvalidInput", err)
	}
}
