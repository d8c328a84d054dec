package model

import "time"

// PlayerResult is one row of a finished game's scoreboard.
type PlayerResult struct {
	Username string `json:"username" bson:"username"`
	Score    int    `json:"score" bson:"score"`
	IsWinner bool   `json:"isWinner" bson:"isWinner"`
}

// Game is the persisted history record of one finished game.
type Game struct {
	RoomID    string         `json:"roomId" bson:"roomId"`
	Questions []Question     `json:"questions" bson:"questions"`
	Results   []PlayerResult `json:"results" bson:"results"`
	StartTime time.Time      `json:"startTime" bson:"startTime"`
	EndTime   time.Time      `json:"endTime" bson:"endTime"`
}
