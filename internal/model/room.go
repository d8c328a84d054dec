package model

import "time"

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// RoomSettings are the host-configurable game parameters.
type RoomSettings struct {
	QuestionCount   int      `json:"questionCount" bson:"questionCount"`
	TimePerQuestion int      `json:"timePerQuestion" bson:"timePerQuestion"` // seconds
	Categories      []string `json:"categories" bson:"categories"`           // category IDs, or ["any"]
	Difficulty      string   `json:"difficulty" bson:"difficulty"`           // any, easy, medium, hard
	MaxPlayers      int      `json:"maxPlayers" bson:"maxPlayers"`
}

// DefaultRoomSettings mirrors the defaults applied on room creation.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		QuestionCount:   10,
		TimePerQuestion: 20,
		Categories:      []string{"any"},
		Difficulty:      "any",
		MaxPlayers:      8,
	}
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	QuestionCount   *int      `json:"questionCount,omitempty"`
	TimePerQuestion *int      `json:"timePerQuestion,omitempty"`
	Categories      *[]string `json:"categories,omitempty"`
	Difficulty      *string   `json:"difficulty,omitempty"`
	MaxPlayers      *int      `json:"maxPlayers,omitempty"`
}

// Room is the persisted room document. Live membership is tracked in
// memory by the game coordinator, not here.
type Room struct {
	RoomID       string       `json:"roomId" bson:"roomId"` // short uppercase code
	PasswordHash string       `json:"-" bson:"passwordHash"`
	Settings     RoomSettings `json:"settings" bson:"settings"`
	HostUsername string       `json:"hostUsername" bson:"hostId"` // username of the creator
	Status       RoomStatus   `json:"status" bson:"status"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
}
