package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/healthtrace/internal/agent"
	"github.com/ziadkadry99/healthtrace/internal/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "ask" or "reset"
	Content string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type         string `json:"type"` // "response", "reset" or "error"
	Content      string `json:"content"`
	ContextItems int    `json:"context_items,omitempty"`
	Patterns     int    `json:"patterns,omitempty"`
}

// handleChat runs a conversation over a WebSocket. History lives only as
// long as the connection.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	var history []agent.Turn
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", "error", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.send(conn, chatResponse{Type: "error", Content: "invalid message format"})
			continue
		}

		switch req.Type {
		case "reset":
			history = nil
			s.send(conn, chatResponse{Type: "reset"})
		case "ask", "message":
			if req.Content == "" {
				s.send(conn, chatResponse{Type: "error", Content: "content is required"})
				continue
			}
			ans, err := s.deps.Agent.Ask(r.Context(), userID, req.Content, history...)
			if err != nil {
				s.send(conn, chatResponse{Type: "error", Content: "question failed: " + err.Error()})
				continue
			}
			history = append(history,
				agent.Turn{Role: llm.RoleUser, Content: req.Content},
				agent.Turn{Role: llm.RoleAssistant, Content: ans.Answer},
			)
			resp := chatResponse{Type: "response", Content: ans.Answer, Patterns: len(ans.Patterns)}
			if ans.Context != nil {
				resp.ContextItems = len(ans.Context.Results)
			}
			s.send(conn, resp)
		default:
			s.send(conn, chatResponse{Type: "error", Content: "unknown message type: " + req.Type})
		}
	}
}

func (s *Server) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", "error", err)
	}
}
