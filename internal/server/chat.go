package server

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/manualqa/internal/chat"
)

// checkOrigin applies the REST CORS policy to websocket handshakes: any
// origin with AllowAll, otherwise loopback hosts only. Clients that send no
// Origin (non-browser) are accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "ask"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string          `json:"type"` // "response" or "error"
	SessionID string          `json:"session_id"`
	Content   string          `json:"content"`
	HTML      string          `json:"html,omitempty"`
	Citations []chat.Citation `json:"citations,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, "", "invalid message format")
			continue
		}

		if req.Content == "" {
			s.sendError(conn, req.SessionID, "content is required")
			continue
		}

		switch req.Type {
		case "ask":
			s.handleAskMessage(conn, r, req)
		default:
			s.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

// handleAskMessage answers one question; messages on a connection are handled
// in order, so a connection never has two questions in flight.
func (s *Server) handleAskMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	ctx := r.Context()

	var sess *chat.Session
	var err error
	if req.SessionID == "" {
		sess, err = s.sessions.Create(ctx)
	} else {
		sess, err = s.sessions.Get(ctx, req.SessionID)
	}
	if err != nil {
		s.sendError(conn, req.SessionID, "session: "+err.Error())
		return
	}

	resp, err := s.ask(r, sess, askRequest{Question: req.Content})
	if err != nil {
		s.sendError(conn, sess.ID, "question failed: "+err.Error())
		return
	}

	s.sendResponse(conn, chatResponse{
		Type:      "response",
		SessionID: sess.ID,
		Content:   resp.Text,
		HTML:      resp.HTML,
		Citations: resp.Citations,
	})
}

func (s *Server) sendResponse(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, sessionID, message string) {
	resp := chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	}
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write error: %v", err)
	}
}
