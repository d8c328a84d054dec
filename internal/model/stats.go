package model

import "time"

// UserStats accumulates lifetime gameplay counters for a user,
// keyed by the external user identifier supplied on join.
type UserStats struct {
	UserID            string    `json:"userId" bson:"_id"`
	TotalGames        int       `json:"totalGames" bson:"totalGames"`
	TotalWins         int       `json:"totalWins" bson:"totalWins"`
	TotalLosses       int       `json:"totalLosses" bson:"totalLosses"`
	TotalQuestions    int       `json:"totalQuestions" bson:"totalQuestions"`
	FastestAnswerTime float64   `json:"fastestAnswerTime" bson:"fastestAnswerTime"` // seconds, 0 = unset
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}
