package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/agrintel/agri-intel-be/types"
)

// WebSocketService exposes the query service over a websocket, streaming
// partial answers back to the client as they are generated.
type WebSocketService struct {
	ai       AIService
	upgrader websocket.Upgrader
}

func NewWebSocketService(ai AIService) *WebSocketService {
	return &WebSocketService{
		ai: ai,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebSocketService) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("websocket read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			log.Warn().Err(err).Msg("invalid websocket message")
			s.writeError(conn, messageType, "invalid message")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketChat:
			s.handleChatMessage(ctx, conn, messageType, req)
		case types.TypeWebsocketPing:
			if err := conn.WriteJSON(types.WebsocketResponse{Type: types.TypeWebsocketPong}); err != nil {
				log.Error().Err(err).Msg("websocket write error")
			}
		default:
			log.Warn().Str("type", req.Type).Msg("unknown websocket message type")
			s.writeError(conn, messageType, "unknown message type")
		}
	}
}

func (s *WebSocketService) handleChatMessage(ctx context.Context, conn *websocket.Conn, messageType int, req types.WebsocketRequest) {
	payloadBytes, err := json.Marshal(req.Payload)
	if err != nil {
		s.writeError(conn, messageType, "invalid payload")
		return
	}
	var payload types.WebsocketChatPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		log.Warn().Err(err).Msg("invalid chat payload")
		s.writeError(conn, messageType, "invalid payload")
		return
	}

	err = s.ai.ChatStream(ctx, []types.Message{{Role: "user", Content: payload.Text}}, func(response string) {
		if response == "" {
			return
		}
		msg := types.WebsocketResponse{
			Type:    types.TypeWebsocketChat,
			Payload: types.WebsocketChatResponse{Message: response},
		}
		if werr := conn.WriteJSON(msg); werr != nil {
			log.Error().Err(werr).Msg("websocket write error")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("chat stream failed")
		s.writeError(conn, messageType, "error generating answer")
		return
	}

	done := types.WebsocketResponse{
		Type:    types.TypeWebsocketChat,
		Payload: types.WebsocketChatResponse{Done: true},
	}
	if err := conn.WriteJSON(done); err != nil {
		log.Error().Err(err).Msg("websocket write error")
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, messageType int, message string) {
	res := types.WebsocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: message,
	}
	if err := conn.WriteJSON(res); err != nil {
		log.Error().Err(err).Msg("websocket write error")
	}
}
