package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"triviahome/internal/game"
	"triviahome/internal/model"
	"triviahome/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	maxChatLength = 300
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler upgrades connections and dispatches inbound events to the
// game coordinator.
type Handler struct {
	hub     *Hub
	coord   *game.Coordinator
	authSvc *service.AuthService
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, coord *game.Coordinator, authSvc *service.AuthService) *Handler {
	return &Handler{
		hub:     hub,
		coord:   coord,
		authSvc: authSvc,
	}
}

// Serve handles GET /ws. The room-scoped token issued by the REST join
// endpoint is required as a query parameter.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidatePlayerToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	connID := uuid.New().String()
	send := make(chan []byte, 256)
	var once sync.Once
	closeFn := func() { once.Do(func() { close(send) }) }

	h.hub.Register(connID, send, closeFn)
	log.Printf("Connection %s established for %s (room %s)", connID, claims.Username, claims.RoomID)

	go h.writePump(wsConn, send)
	go h.readPump(wsConn, connID, claims, closeFn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, connID string, claims *model.PlayerClaims, closeFn func()) {
	defer func() {
		h.hub.Unregister(connID)
		h.coord.Disconnect(connID)
		closeFn()
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on %s: %v", connID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Malformed message from %s: %v", connID, err)
			continue
		}
		h.dispatch(connID, claims, &msg)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type joinPayload struct {
	RoomID   string       `json:"roomId"`
	Username string       `json:"username"`
	Avatar   model.Avatar `json:"avatar"`
	UserID   string       `json:"userId"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type settingsPayload struct {
	RoomID   string              `json:"roomId"`
	Settings model.SettingsPatch `json:"settings"`
}

type answerPayload struct {
	RoomID string `json:"roomId"`
	Answer string `json:"answer"`
	UserID string `json:"userId"`
}

type chatPayload struct {
	RoomID       string       `json:"roomId"`
	SenderName   string       `json:"senderName"`
	SenderAvatar model.Avatar `json:"senderAvatar"`
	Text         string       `json:"text"`
	Timestamp    int64        `json:"timestamp"`
}

func (h *Handler) dispatch(connID string, claims *model.PlayerClaims, msg *Message) {
	switch msg.Type {
	case "join_room":
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.hub.ToClient(connID, game.EventJoinRoomError, game.ErrorMessage{Message: "Malformed join payload."})
			return
		}
		if p.UserID == "" {
			p.UserID = claims.UserID
		}
		err := h.coord.Join(context.Background(), game.JoinRequest{
			RoomID:   p.RoomID,
			Username: p.Username,
			Avatar:   p.Avatar,
			ConnID:   connID,
			UserID:   p.UserID,
		})
		if err != nil {
			h.hub.ToClient(connID, game.EventJoinRoomError, game.ErrorMessage{Message: err.Error()})
		}

	case "leave_room":
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.RoomID == "" {
			return
		}
		h.coord.Leave(p.RoomID, connID)

	case "update_game_settings":
		var p settingsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.hub.ToClient(connID, game.EventSettingsError, game.ErrorMessage{Message: "Malformed settings payload."})
			return
		}
		if err := h.coord.UpdateSettings(context.Background(), p.RoomID, connID, p.Settings); err != nil {
			h.hub.ToClient(connID, game.EventSettingsError, game.ErrorMessage{Message: err.Error()})
		}

	case "delete_room":
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if err := h.coord.DeleteRoom(context.Background(), p.RoomID, connID); err != nil {
			h.hub.ToClient(connID, game.EventRoomError, game.ErrorMessage{Message: err.Error()})
		}

	case "start_game":
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if err := h.coord.StartGame(p.RoomID, connID); err != nil {
			h.hub.ToClient(connID, game.EventGameError, game.ErrorMessage{Message: err.Error()})
		}

	case "submit_answer":
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		// Feedback events are emitted by the coordinator itself.
		if err := h.coord.SubmitAnswer(p.RoomID, connID, p.Answer, p.UserID); err != nil {
			log.Printf("submit_answer from %s rejected: %v", connID, err)
		}

	case "chat_message":
		var p chatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		h.relayChat(connID, &p)

	default:
		log.Printf("Unknown event %q from %s", msg.Type, connID)
	}
}

// relayChat forwards a chat message to the sender's room after a
// membership check and a length cap.
func (h *Handler) relayChat(connID string, p *chatPayload) {
	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		return
	}
	if len(p.Text) > maxChatLength {
		h.hub.ToClient(connID, game.EventRoomError, game.ErrorMessage{
			Message: "Chat messages cannot exceed 300 characters.",
		})
		return
	}

	roomID := strings.ToUpper(p.RoomID)
	if !h.coord.IsInRoom(roomID, connID) {
		h.hub.ToClient(connID, game.EventRoomError, game.ErrorMessage{Message: "You are not in this room."})
		return
	}
	h.hub.ToRoom(roomID, game.EventChatMessage, p)
}

