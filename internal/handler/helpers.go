package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/ankitjain91/opspilot/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serialises v as the response body. Encoding failures are
// logged; headers are already out by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Response encoding failed", "error", err)
	}
}

// writeError converts a domain error into an HTTP status with a JSON
// body. Kubernetes API status errors keep their upstream code.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	var invalidInput *core.ErrInvalidInput
	if errors.As(err, &invalidInput) {
		return http.StatusBadRequest
	}
	var sessionNotFound *core.ErrSessionNotFound
	if errors.As(err, &sessionNotFound) {
		return http.StatusNotFound
	}
	var startFailed *core.ErrStartFailed
	if errors.As(err, &startFailed) {
		return http.StatusBadGateway
	}

	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) {
		if code := apiStatus.Status().Code; code > 0 {
			return int(code)
		}
	}

	return http.StatusInternalServerError
}

// readJSON decodes the request body into v, rejecting unknown fields.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &core.ErrInvalidInput{Field: "body", Message: err.Error()}
	}
	return nil
}

// targetFromQuery builds a watch target from the common query
// parameters shared by the resource endpoints.
func targetFromQuery(r *http.Request) core.WatchTarget {
	q := r.URL.Query()
	return core.WatchTarget{
		Cluster:            q.Get("cluster"),
		APIGroup:           q.Get("group"),
		APIVersion:         q.Get("version"),
		Kind:               q.Get("kind"),
		Namespace:          q.Get("namespace"),
		Name:               q.Get("name"),
		IncludeFullPayload: q.Get("fullPayload") == "true",
	}
}

// queryInt64 parses an optional int64 query parameter, returning nil
// when absent or malformed.
func queryInt64(r *http.Request, key string) *int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
