package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ankitjain91/opspilot/internal/config"
	"github.com/ankitjain91/opspilot/internal/core"
)

const writeTimeout = 10 * time.Second

// WatchHandler upgrades console connections to WebSocket and streams
// cache updates for one watch target per connection. The client sends
// a single target frame after the upgrade; the server seeds the cache,
// starts a watch session, and pushes a fresh snapshot whenever the
// cache changes. Closing the socket tears the session down.
type WatchHandler struct {
	sessions       *core.SessionManager
	allowedOrigins []string
}

// NewWatchHandler returns a WatchHandler bound to the session manager.
func NewWatchHandler(sessions *core.SessionManager, conf *config.Config) *WatchHandler {
	return &WatchHandler{
		sessions:       sessions,
		allowedOrigins: conf.ConsoleAllowedOrigins(),
	}
}

// Register mounts the handler's routes on mux.
func (h *WatchHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/watch", h.serve)
}

type watchFrame struct {
	Type         string           `json:"type"`
	Key          string           `json:"key,omitempty"`
	Revision     uint64           `json:"revision,omitempty"`
	Items        []recordResponse `json:"items,omitempty"`
	Record       *recordResponse  `json:"record,omitempty"`
	Invalid      bool             `json:"invalid,omitempty"`
	SyncComplete bool             `json:"syncComplete"`
	Error        string           `json:"error,omitempty"`
}

type recordResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Namespace string         `json:"namespace,omitempty"`
	Payload   string         `json:"payload,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (h *WatchHandler) serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, h.allowedOrigins)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connID := uuid.NewString()

	var req watchTargetRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}
	target := req.toDomain()

	ctx := r.Context()
	if err := h.sessions.Seed(ctx, target); err != nil {
		writeFrame(conn, watchFrame{Type: "ERROR", Error: err.Error()})
		return
	}

	handle, err := h.sessions.Start(ctx, target)
	if err != nil {
		writeFrame(conn, watchFrame{Type: "ERROR", Error: err.Error()})
		return
	}
	if handle == nil {
		writeFrame(conn, watchFrame{Type: "ERROR", Error: "incomplete watch target"})
		return
	}
	defer h.sessions.Stop(handle)

	slog.Debug("Watch connection established",
		"conn_id", connID,
		"session_id", handle.ID,
		"kind", target.Kind,
		"namespace", target.Namespace,
		"name", target.Name,
	)

	store := h.sessions.Store()
	single := target.SingleObject()
	listKey := target.ListKey()
	objectKey := target.ObjectKey()

	updates, cancel := store.Events().SubscribeFiltered(func(ev core.StoreEvent) bool {
		if single {
			return ev.Object == objectKey
		}
		return ev.List == listKey
	})
	defer cancel()

	done := make(chan struct{})
	defer close(done)

	go func() {
		// Seed snapshot first so the view renders before the first
		// change arrives.
		if !h.pushSnapshot(conn, store, handle, target) {
			return
		}
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				if !h.pushSnapshot(conn, store, handle, target) {
					return
				}
			case <-handle.Done():
				writeFrame(conn, watchFrame{Type: "ENDED", SyncComplete: handle.IsInitialSyncComplete()})
				return
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Debug("Watch connection closed", "conn_id", connID, "session_id", handle.ID)
			return
		}
	}
}

func (h *WatchHandler) pushSnapshot(conn *websocket.Conn, store *core.Store, handle *core.SessionHandle, target core.WatchTarget) bool {
	if target.SingleObject() {
		record, invalid, ok := store.ObjectSnapshot(target.ObjectKey())
		if !ok {
			return true
		}
		rec := toRecordResponse(record)
		return writeFrame(conn, watchFrame{
			Type:         "OBJECT",
			Key:          target.ObjectKey().String(),
			Record:       &rec,
			Invalid:      invalid,
			SyncComplete: handle.IsInitialSyncComplete(),
		})
	}

	records, revision, ok := store.ListSnapshot(target.ListKey())
	if !ok {
		return true
	}
	items := make([]recordResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toRecordResponse(record))
	}
	return writeFrame(conn, watchFrame{
		Type:         "LIST",
		Key:          target.ListKey().String(),
		Revision:     revision,
		Items:        items,
		SyncComplete: handle.IsInitialSyncComplete(),
	})
}

func toRecordResponse(record core.ObjectRecord) recordResponse {
	return recordResponse{
		ID:        record.ID,
		Name:      record.Name,
		Namespace: record.Namespace,
		Payload:   record.FullPayload,
		Fields:    record.Fields,
	}
}

func writeFrame(conn *websocket.Conn, frame watchFrame) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return false
	}
	return conn.WriteJSON(frame) == nil
}

// originAllowed permits same-host upgrades and any origin on the
// allow list. An empty list restricts connections to same-host only.
func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, candidate := range allowed {
		if candidate == "*" || candidate == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
