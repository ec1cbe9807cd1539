package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handsign/internal/app"
	"github.com/ayusman/handsign/internal/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventSource is what the events endpoint needs from the application.
type EventSource interface {
	Subscribe() (<-chan app.Event, func())
	Status() app.Status
}

// EventsHandler pushes session state, text and landmark events over WebSocket.
type EventsHandler struct {
	source EventSource
	logger *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(source EventSource, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{source: source, logger: log.Component(logger, "server.events")}
}

// ServeHTTP upgrades the connection, sends the current state, then forwards
// every event until either side goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := h.source.Subscribe()
	defer cancel()

	// Reads only detect the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	st := h.source.Status()
	if err := h.write(conn, app.Event{Type: app.EventState, State: st.State, Error: st.Error, Text: st.Text}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := h.write(conn, e); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, e app.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}
