package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"triviahome/internal/repository"
)

// UserHandler serves public user profiles (avatar, coin balance).
type UserHandler struct {
	users repository.UserRepo
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users repository.UserRepo) *UserHandler {
	return &UserHandler{users: users}
}

// Get handles GET /api/users/{username}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(mux.Vars(r)["username"])

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
