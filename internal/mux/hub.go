package mux

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/ankitjain91/opspilot/internal/handler"
)

// Hub is the console's root mux. It owns handler registration and the
// operational endpoints.
type Hub struct {
	*http.ServeMux

	resource *handler.ResourceHandler
	watch    *handler.WatchHandler
}

func NewHub(resource *handler.ResourceHandler, watch *handler.WatchHandler) *Hub {
	return &Hub{
		ServeMux: &http.ServeMux{},
		resource: resource,
		watch:    watch,
	}
}

func (h *Hub) RegisterHandlers() error {
	// Register metrics endpoint
	if err := h.registerMetrics(); err != nil {
		return err
	}

	// Register health endpoint
	h.registerHealth()

	// Register API handlers
	h.resource.Register(h.ServeMux)
	h.watch.Register(h.ServeMux)

	return nil
}

func (h *Hub) registerMetrics() error {
	exporter, err := prometheus.New()
	if err != nil {
		return err
	}
	otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(exporter)))
	h.Handle("/metrics", promhttp.Handler())
	return nil
}

func (h *Hub) registerHealth() {
	h.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
