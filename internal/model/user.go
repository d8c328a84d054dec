package model

import "time"

// Avatar is the player's cosmetic loadout. The backend treats it as
// opaque structured data and just relays it to lobby members.
type Avatar struct {
	Head      string `json:"head" bson:"head"`
	Body      string `json:"body" bson:"body"`
	Accessory string `json:"accessory" bson:"accessory"`
}

// User is the persisted user document, keyed by lowercase username.
type User struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Username  string    `json:"username" bson:"username"`
	Avatar    Avatar    `json:"avatar" bson:"avatar"`
	Coins     int       `json:"coins" bson:"coins"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
