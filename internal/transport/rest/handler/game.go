package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"triviahome/internal/repository"
	"triviahome/internal/transport/rest/middleware"
)

// GameHandler serves finished-game history for a room.
type GameHandler struct {
	games repository.GameRepo
}

// NewGameHandler creates a new game handler.
func NewGameHandler(games repository.GameRepo) *GameHandler {
	return &GameHandler{games: games}
}

// History handles GET /api/rooms/{roomId}/games. The player token is
// room-scoped, so members can only read their own room's history.
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	roomID := strings.ToUpper(mux.Vars(r)["roomId"])

	claims := middleware.PlayerClaims(r.Context())
	if claims == nil || claims.RoomID != roomID {
		writeError(w, http.StatusForbidden, "Token is not valid for this room.")
		return
	}

	games, err := h.games.ListByRoom(r.Context(), roomID, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"games": games})
}
