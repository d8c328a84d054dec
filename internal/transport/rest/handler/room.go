package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"triviahome/internal/model"
	"triviahome/internal/repository"
	"triviahome/internal/service"
)

// RoomHandler handles room creation and password-checked joins. Live
// membership is the coordinator's business; these endpoints only
// manage the persisted room document and mint the WS token.
type RoomHandler struct {
	rooms   repository.RoomRepo
	users   repository.UserRepo
	authSvc *service.AuthService
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(rooms repository.RoomRepo, users repository.UserRepo, authSvc *service.AuthService) *RoomHandler {
	return &RoomHandler{
		rooms:   rooms,
		users:   users,
		authSvc: authSvc,
	}
}

// Create handles POST /api/rooms/create
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomName == "" || req.Password == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "Please enter a room name, password, and username.")
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if msg := validateUsername(username); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	roomID := strings.ToUpper(req.RoomName)
	existing, err := h.rooms.GetByID(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error. Could not create room.")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Room name already taken. Please choose another.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error. Could not create room.")
		return
	}

	if err := h.ensureUser(r, req.UserID, username); err != nil {
		log.Printf("ensuring user %s: %v", username, err)
	}

	room := &model.Room{
		RoomID:       roomID,
		PasswordHash: string(hash),
		Settings:     model.DefaultRoomSettings(),
		HostUsername: username,
		Status:       model.RoomWaiting,
		CreatedAt:    time.Now(),
	}
	if err := h.rooms.Create(r.Context(), room); err != nil {
		log.Printf("creating room %s: %v", roomID, err)
		writeError(w, http.StatusInternalServerError, "Server error. Could not create room.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Room created successfully!",
		"roomId":   room.RoomID,
		"settings": room.Settings,
		"hostId":   username,
	})
}

// Join handles POST /api/rooms/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req model.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomID == "" || req.Password == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "Please enter room ID, password, and username.")
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if msg := validateUsername(username); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	roomID := strings.ToUpper(req.RoomID)
	room, err := h.rooms.GetByID(r.Context(), roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error. Could not join room.")
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "Room not found.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Incorrect password.")
		return
	}

	if err := h.ensureUser(r, req.UserID, username); err != nil {
		log.Printf("ensuring user %s: %v", username, err)
	}

	token, err := h.authSvc.GeneratePlayerToken(roomID, username, req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error. Could not join room.")
		return
	}

	writeJSON(w, http.StatusOK, model.JoinRoomResponse{
		Message:  "Successfully joined room!",
		RoomID:   room.RoomID,
		Settings: room.Settings,
		Token:    token,
	})
}

// ensureUser creates the user document on first contact.
func (h *RoomHandler) ensureUser(r *http.Request, userID, username string) error {
	if userID == "" {
		return nil
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil || user != nil {
		return err
	}
	return h.users.Create(r.Context(), &model.User{
		ID:       userID,
		Username: username,
	})
}

func validateUsername(username string) string {
	if len(username) < 3 {
		return "Username must be at least 3 characters."
	}
	if len(username) > 26 {
		return "Username cannot exceed 26 characters."
	}
	return ""
}
