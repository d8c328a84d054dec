package game

import "errors"

// Room-level errors. All of these are recoverable: they are reported to
// the originating connection (or broadcast, for room-fatal cases) and
// never crash the process.
var (
	ErrMissingFields    = errors.New("missing room ID, username, or avatar")
	ErrRoomNotFound     = errors.New("room does not exist")
	ErrRoomFull         = errors.New("room is full")
	ErrGameInProgress   = errors.New("game is already in progress")
	ErrUsernameTaken    = errors.New("username is already in this room")
	ErrUnauthorized     = errors.New("not authorized")
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start a game")
	ErrAlreadyAnswered  = errors.New("already answered this question")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrInvalidState     = errors.New("invalid game state")
	ErrPersistence      = errors.New("persistence failure")
	ErrUpstreamProvider = errors.New("trivia provider failure")
)
