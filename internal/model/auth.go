package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims for room-scoped player tokens, issued on
// a successful REST join and presented at the WebSocket upgrade.
type PlayerClaims struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	UserID   string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
	Username string `json:"username"`
	UserID   string `json:"userId,omitempty"`
}

// JoinRoomRequest is the request body for joining a room.
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
	Username string `json:"username"`
	UserID   string `json:"userId,omitempty"`
}

// JoinRoomResponse is returned after a successful password check.
type JoinRoomResponse struct {
	Message  string       `json:"message"`
	RoomID   string       `json:"roomId"`
	Settings RoomSettings `json:"settings"`
	Token    string       `json:"token"`
}
