package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("secret")

	token, err := svc.GeneratePlayerToken("QUIZ1", "alice", "u1")
	require.NoError(t, err)

	claims, err := svc.ValidatePlayerToken(token)
	require.NoError(t, err)
	assert.Equal(t, "QUIZ1", claims.RoomID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "u1", claims.UserID)
}

func TestPlayerTokenWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-a").GeneratePlayerToken("QUIZ1", "alice", "")
	require.NoError(t, err)

	_, err = NewAuthService("secret-b").ValidatePlayerToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPlayerTokenGarbage(t *testing.T) {
	_, err := NewAuthService("secret").ValidatePlayerToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
