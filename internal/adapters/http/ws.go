package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avadhbsd/DevinKitMCP/internal/app/dispatcher"
	"github.com/avadhbsd/DevinKitMCP/internal/domain"
	"github.com/avadhbsd/DevinKitMCP/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same open policy as the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	KitAPIKey      string `json:"kit_api_key,omitempty"`
	ClaudeAPIKey   string `json:"claude_api_key,omitempty"`
}

type wsResponse struct {
	Response       string    `json:"response,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// handleWebSocket serves the persistent duplex channel. Each frame is one
// turn; per-frame failures are reported on the socket and the loop
// continues.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := observability.LoggerFromContext(r.Context()).With("transport", "websocket")
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("websocket read failed", "error", err)
			}
			return
		}

		kitKey := req.KitAPIKey
		if kitKey == "" {
			kitKey = s.defaultKitKey
		}
		claudeKey := req.ClaudeAPIKey
		if claudeKey == "" {
			claudeKey = s.defaultClaudeKey
		}

		if kitKey == "" {
			s.writeWS(conn, log, wsResponse{Error: "Kit.com API key is required", Timestamp: time.Now()})
			continue
		}
		if claudeKey == "" {
			s.writeWS(conn, log, wsResponse{Error: "Claude API key is required", Timestamp: time.Now()})
			continue
		}

		svc := s.newService(kitKey, claudeKey)
		out, err := svc.ProcessMessage(r.Context(), dispatcher.ProcessMessageInput{
			ConversationID: domain.ConversationID(req.ConversationID),
			Text:           req.Message,
		})
		if err != nil {
			s.writeWS(conn, log, wsResponse{Error: "error processing message", Timestamp: time.Now()})
			continue
		}

		s.writeWS(conn, log, wsResponse{
			Response:       out.Response,
			ConversationID: string(out.ConversationID),
			Timestamp:      time.Now(),
		})
	}
}

func (s *Server) writeWS(conn *websocket.Conn, log *slog.Logger, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Error("websocket write failed", "error", err)
	}
}
