package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chartflow/chartflow/internal/pipeline"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketRunRequest starts a pipeline run over an open connection.
type WebSocketRunRequest struct {
	Action string `json:"action"` // "run"
}

// WebSocketStateEvent streams one state transition.
type WebSocketStateEvent struct {
	Type string         `json:"type"` // "state"
	From pipeline.State `json:"from"`
	To   pipeline.State `json:"to"`
}

// WebSocketResultEvent carries the terminal run outcome.
type WebSocketResultEvent struct {
	Type   string             `json:"type"` // "result"
	Result pipeline.RunResult `json:"result"`
	Error  string             `json:"error,omitempty"`
}

// runWebSocketHandler streams a live pipeline run: the client sends
// {"action":"run"} and receives every state transition followed by the
// terminal result.
func (s *Server) runWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	activeWebSockets.Inc()
	defer activeWebSockets.Dec()
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("WebSocket read failed", "error", err)
			}
			return
		}

		var req WebSocketRunRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Action != "run" {
			s.sendWS(conn, WebSocketResultEvent{Type: "result", Error: "expected {\"action\":\"run\"}"})
			continue
		}

		res := s.pipeline.RunWithCallback(r.Context(), func(from, to pipeline.State) {
			s.sendWS(conn, WebSocketStateEvent{Type: "state", From: from, To: to})
		})
		event := WebSocketResultEvent{Type: "result", Result: res}
		if res.Err != nil {
			event.Error = res.Err.Error()
		}
		if res.Publish.Action != "" {
			publishesTotal.WithLabelValues(res.Publish.Action, string(res.State)).Inc()
		}
		s.sendWS(conn, event)
	}
}

func (s *Server) sendWS(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode WebSocket message", "error", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("WebSocket write failed", "error", err)
	}
}
