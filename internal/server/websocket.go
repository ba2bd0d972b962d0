package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/models"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event types sent over the regeneration progress socket.
const (
	wsEventProgress = "progress"
	wsEventDone     = "done"
	wsEventError    = "error"
)

type wsEvent struct {
	Type     string              `json:"type"`
	Progress *models.Progress    `json:"progress,omitempty"`
	Result   *models.BatchResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// handleRegenerateWS runs one regeneration batch per connection. The client sends a
// batchRequest; the server streams a progress event before and after each document and
// finishes with a done event carrying the batch result.
func (s *Server) handleRegenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// A client that disconnects mid-batch stops receiving events; the batch itself continues.
	clientGone := false
	send := func(ev wsEvent) {
		if clientGone {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
			clientGone = true
		}
	}

	var req batchRequest
	if err := conn.ReadJSON(&req); err != nil {
		send(wsEvent{Type: wsEventError, Error: "invalid request: " + err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		send(wsEvent{Type: wsEventError, Error: err.Error()})
		return
	}

	result, err := s.runBatch(detach(r), &req, func(p models.Progress) {
		send(wsEvent{Type: wsEventProgress, Progress: &p})
	})
	if err != nil {
		s.logger.Error("regenerate batch failed", zap.Error(err))
		send(wsEvent{Type: wsEventError, Error: err.Error()})
		return
	}
	send(wsEvent{Type: wsEventDone, Result: result})
	if !clientGone {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
}
