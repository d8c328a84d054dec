package game

import "triviahome/internal/model"

// Event names on the wire. The transport wraps payloads in its own
// envelope; these are the envelope type tags.
const (
	EventUpdateLobby     = "update_lobby"
	EventJoinRoomError   = "join_room_error"
	EventSettingsUpdated = "game_settings_updated"
	EventSettingsError   = "game_settings_error"
	EventRoomError       = "room_error"
	EventRoomDeleted     = "room_deleted"
	EventGameStarting    = "game_starting"
	EventSendQuestion    = "send_question"
	EventTimeUp          = "time_up"
	EventAnswerFeedback  = "answer_feedback"
	EventScoreUpdate     = "score_update"
	EventGameEnd         = "game_end"
	EventGameError       = "game_error"
	EventChatMessage     = "chat_message"
)

// LobbyUpdate is broadcast to a room whenever its membership, settings
// or host change.
type LobbyUpdate struct {
	RoomID       string             `json:"roomId"`
	Participants []PlayerState      `json:"participants"`
	Settings     model.RoomSettings `json:"settings"`
	Status       model.RoomStatus   `json:"status"`
	HostUsername string             `json:"hostUsername"`
}

// SettingsUpdated is broadcast after the host changes room settings.
type SettingsUpdated struct {
	RoomID   string             `json:"roomId"`
	Settings model.RoomSettings `json:"settings"`
}

// RoomDeleted is broadcast before a host-initiated room teardown.
type RoomDeleted struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// GameStarting is broadcast once questions have been fetched, just
// before the first question countdown.
type GameStarting struct {
	RoomID   string             `json:"roomId"`
	Settings model.RoomSettings `json:"settings"`
	Players  []PlayerState      `json:"players"`
}

// QuestionPrompt is broadcast for each question. The correct answer is
// withheld until the TimeUp event.
type QuestionPrompt struct {
	QuestionIndex     int      `json:"questionIndex"`
	QuestionText      string   `json:"questionText"`
	Options           []string `json:"options"`
	TimeLimit         int      `json:"timeLimit"` // seconds
	QuestionStartTime int64    `json:"questionStartTime"`
}

// TimeUp is broadcast when a question's timer fires.
type TimeUp struct {
	QuestionIndex int    `json:"questionIndex"`
	CorrectAnswer string `json:"correctAnswer"`
}

// AnswerFeedback is sent privately to the submitting player.
type AnswerFeedback struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

// ScoreUpdate is broadcast to the room after every scored submission.
type ScoreUpdate struct {
	Username     string `json:"username"`
	Score        int    `json:"score"`
	PointsEarned int    `json:"pointsEarned"`
	IsCorrect    bool   `json:"isCorrect"`
	IsFastest    bool   `json:"isFastest"`
	Coins        int    `json:"coins"`
}

// GameEnd is broadcast after settlement with the final scoreboard and
// the coins earned per username this game.
type GameEnd struct {
	RoomID      string               `json:"roomId"`
	Results     []model.PlayerResult `json:"results"`
	CoinsEarned map[string]int       `json:"coinsEarned"`
}

// ErrorMessage is the payload for all error events.
type ErrorMessage struct {
	Message string `json:"message"`
}
