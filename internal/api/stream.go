package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection to a websocket and forwards every
// TickBroadcast the engine publishes until the client disconnects.
// Engine.Subscribe's 256-deep buffered channel and non-blocking send
// already make a slow client lag-tolerant rather than a producer block.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, ch := s.Engine.Subscribe()
	defer s.Engine.Unsubscribe(subID)

	slog.Info("observer stream connected", "sub_id", subID)

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(b); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			slog.Info("observer stream disconnected", "sub_id", subID)
			return
		}
	}
}
