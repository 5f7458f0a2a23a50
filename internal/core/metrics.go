package core

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// watchMetrics holds the synchronization layer's instruments. They
// register against the global meter provider, which the hub points at
// the Prometheus exporter.
type watchMetrics struct {
	eventsReceived metric.Int64Counter
	batchesFlushed metric.Int64Counter
	activeSessions metric.Int64UpDownCounter
}

func newWatchMetrics() *watchMetrics {
	meter := otel.Meter("github.com/ankitjain91/opspilot/internal/core")

	eventsReceived, err := meter.Int64Counter("watch_events_received_total",
		metric.WithDescription("Change events received from watch streams"))
	if err != nil {
		otel.Handle(err)
	}
	batchesFlushed, err := meter.Int64Counter("watch_batches_flushed_total",
		metric.WithDescription("Non-empty flush windows applied to the cache"))
	if err != nil {
		otel.Handle(err)
	}
	activeSessions, err := meter.Int64UpDownCounter("watch_sessions_active",
		metric.WithDescription("Currently live watch sessions"))
	if err != nil {
		otel.Handle(err)
	}

	return &watchMetrics{
		eventsReceived: eventsReceived,
		batchesFlushed: batchesFlushed,
		activeSessions: activeSessions,
	}
}
