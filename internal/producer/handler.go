package producer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rewired-gh/tradestream/internal/logger"
)

const writeWait = 5 * time.Second

// Handler upgrades each request to a WebSocket and streams one trade per
// interval until the client goes away.
type Handler struct {
	gen      *Generator
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewHandler(gen *Generator, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Handler{
		gen:      gen,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logger.Info("Client connected: %s", r.RemoteAddr)
	defer logger.Info("Client disconnected: %s", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Control frames are only processed while reading.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			data, err := json.Marshal(h.gen.Next())
			if err != nil {
				logger.Error("Failed to encode trade: %v", err)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("Error sending message: %v", err)
				return
			}
		}
	}
}
