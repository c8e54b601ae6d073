package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/mini-town/internal/engine"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
)

// StreamMessage is one message on the live stream. The first message on a
// connection is the scene; every later one is a frame.
type StreamMessage struct {
	Type  string        `json:"type"` // "scene" or "frame"
	Scene *engine.Scene `json:"scene,omitempty"`
	Frame *engine.Frame `json:"frame,omitempty"`
}

// handleStream upgrades to a websocket and pushes frames as they are
// published. Frames a slow client cannot keep up with are skipped.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	frames, unsubscribe := s.Sim.Subscribe()
	defer unsubscribe()

	remote := clientIP(r)
	slog.Info("stream client connected", "remote", remote)
	defer slog.Info("stream client disconnected", "remote", remote)

	// The reader only watches for close and pong.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			slog.Debug("stream write failed", "remote", remote, "error", err)
			return false
		}
		return true
	}

	if !send(StreamMessage{Type: "scene", Scene: s.Sim.Scene()}) {
		return
	}
	if !send(StreamMessage{Type: "frame", Frame: s.Sim.Frame()}) {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case f := <-frames:
			if !send(StreamMessage{Type: "frame", Frame: f}) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
