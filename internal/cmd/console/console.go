// Package console implements the desktop console runtime: the HTTP
// and WebSocket API surface backed by the live watch cache.
package console

import (
	"context"
	"net/http"

	"github.com/ankitjain91/opspilot/internal/mux"
)

// Config holds the runtime parameters for a Console.
type Config struct {
	Address        string
	AllowedOrigins []string
}

// Console binds the hub to an HTTP server.
type Console struct {
	hub *mux.Hub
}

// NewConsole returns a Console serving the given hub.
func NewConsole(hub *mux.Hub) *Console {
	return &Console{hub: hub}
}

// Run starts the HTTP server and blocks until ctx is cancelled or an
// unrecoverable error occurs.
func (c *Console) Run(ctx context.Context, cfg Config) error {
	return mux.Run(
		ctx,
		cfg.Address,
		c.mount,
		mux.WithAllowedOrigins(cfg.AllowedOrigins),
	)
}

func (c *Console) mount(m *http.ServeMux) error {
	if err := c.hub.RegisterHandlers(); err != nil {
		return err
	}
	m.Handle("/", c.hub)
	return nil
}
