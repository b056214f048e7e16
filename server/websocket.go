package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/richinex/swasth/storage"
)

const wsReadLimit = 64 << 10

type wsReply struct {
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// handleWebSocket authenticates with the token query parameter, then
// answers each {"message": ...} frame in order on the same connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	logger := s.logger.With(zap.Int64("user_id", user.ID))
	logger.Debug("websocket connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		reply := s.wsTurn(r, user, data, logger)
		out, err := json.Marshal(reply)
		if err != nil {
			logger.Error("failed to marshal websocket reply", zap.Error(err))
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) wsTurn(r *http.Request, user storage.User, data []byte, logger *zap.Logger) wsReply {
	now := time.Now().UTC()
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsReply{Error: "invalid JSON frame", Timestamp: now}
	}
	msg, err := validateMessage(req.Message)
	if err != nil {
		return wsReply{Error: err.Error(), Timestamp: now}
	}

	reply, err := s.converse(r.Context(), user, msg)
	if err != nil {
		status, text := chatFailure(err)
		logger.Error("websocket chat failed", zap.Int("status", status), zap.Error(err))
		return wsReply{Error: text, Timestamp: time.Now().UTC()}
	}
	return wsReply{Response: reply, Timestamp: time.Now().UTC()}
}
