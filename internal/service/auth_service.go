package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"triviahome/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService issues and validates room-scoped player tokens. A token
// is minted on a successful REST join (after the password check) and
// presented at the WebSocket upgrade, so a reconnecting client can
// prove it already passed the room password.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service.
func NewAuthService(secret string) *AuthService {
	return &AuthService{jwtSecret: []byte(secret)}
}

// GeneratePlayerToken creates a room-scoped token for a player.
func (s *AuthService) GeneratePlayerToken(roomID, username, userID string) (string, error) {
	claims := &model.PlayerClaims{
		RoomID:   roomID,
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // 24h for room sessions
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidatePlayerToken validates a player JWT and returns claims.
func (s *AuthService) ValidatePlayerToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
