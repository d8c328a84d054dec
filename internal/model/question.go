package model

// Question is a single trivia question as served to a room. The
// correct answer never leaves the server until time is up.
type Question struct {
	QuestionText  string   `json:"questionText" bson:"questionText"`
	CorrectAnswer string   `json:"correctAnswer" bson:"correctAnswer"`
	Options       []string `json:"options" bson:"options"`
	Type          string   `json:"type" bson:"type"` // "multiple" or "boolean"
	Category      string   `json:"category,omitempty" bson:"-"`
	Difficulty    string   `json:"difficulty,omitempty" bson:"-"`
}

// Category is a trivia category as listed by the upstream API.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
