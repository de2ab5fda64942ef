package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"walkabout/server/internal/hub"
)

// Handler accepts websocket connections and runs each session against the
// hub: one read pump per connection, one write pump per sink.
type Handler struct {
	hub      *hub.Hub
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewHandler builds a websocket handler over the given hub.
func NewHandler(h *hub.Hub, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the request and runs the session until the client goes
// away. Registration with the hub completes before the first inbound frame
// is read.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newConn(socket, h.hub.Codec().Encoding())
	go c.writePump()

	sessionID := h.hub.Connect(c)
	defer h.hub.Unregister(sessionID)

	socket.SetReadLimit(readLimit)
	for {
		_, payload, err := socket.ReadMessage()
		if err != nil {
			// Normal closes and transport faults end the session the
			// same way: unregister, remove, announce.
			return
		}
		h.hub.DispatchInbound(sessionID, payload)
	}
}
