package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single WebSocket write.
const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler pushes every detection event to WebSocket clients.
type EventsHandler struct {
	monitor *Monitor
}

// NewEventsHandler creates a new EventsHandler over monitor.
func NewEventsHandler(monitor *Monitor) *EventsHandler {
	return &EventsHandler{monitor: monitor}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.monitor.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.monitor.Subscribe()
	defer unsubscribe()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.monitor.log.Debug().Err(err).Msg("WebSocket client dropped")
				return
			}
		}
	}
}
