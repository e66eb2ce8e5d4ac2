// Package wsbroadcast implements the WebSocket Broadcaster (C9): a single
// consumer of the websocket_events queue that forwards each body verbatim
// to every WebSocket client subscribed to that event's camera, per spec
// §4.7/§4.9.
//
// Grounded on the teacher's internal/ws/{detection_hub,handler}.go — the
// per-camera connection-set hub, the 10s write deadline with
// unregister-on-failure, and the ping/pong keepalive read pump are carried
// over unchanged in shape; only the payload (forwarded WsEvent bytes
// instead of a locally-built DetectionMessage) and the event source (the
// Frame Bus's websocket_events queue instead of a direct in-process call)
// differ.
package wsbroadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"visionmesh/internal/model"
)

// Hub manages WebSocket connections for real-time event streaming, keyed
// by camera name.
type Hub struct {
	clients map[string]map[*websocket.Conn]bool
	mu      sync.RWMutex
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
		log:     log,
	}
}

func (h *Hub) Register(cameraName string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cameraName] == nil {
		h.clients[cameraName] = make(map[*websocket.Conn]bool)
	}
	h.clients[cameraName][conn] = true
	h.log.Debug().Str("camera", cameraName).Int("total", len(h.clients[cameraName])).Msg("ws client registered")
}

func (h *Hub) Unregister(cameraName string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[cameraName]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, cameraName)
		}
	}
}

func (h *Hub) HasClients(cameraName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[cameraName]
	return ok && len(conns) > 0
}

// BroadcastToCamera sends message to every connection registered for
// cameraName; a write failure unregisters and closes that connection.
func (h *Hub) BroadcastToCamera(cameraName string, message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[cameraName]))
	for c := range h.clients[cameraName] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.Warn().Err(err).Str("camera", cameraName).Msg("ws send failed, dropping client")
			h.Unregister(cameraName, conn)
			conn.Close()
		}
	}
}

// Dispatch decodes body as a WsEvent and forwards the raw body verbatim to
// that event's camera subscribers, per spec §4.7's "forwards each body
// verbatim". Undecodable bodies are dropped with a warning.
func (h *Hub) Dispatch(body []byte) {
	var ev model.WsEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.log.Warn().Err(err).Msg("dropping undecodable ws event")
		return
	}
	if !h.HasClients(ev.CameraName) {
		return
	}
	h.BroadcastToCamera(ev.CameraName, body)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}
