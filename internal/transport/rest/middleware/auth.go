package middleware

import (
	"context"
	"net/http"
	"strings"

	"triviahome/internal/model"
	"triviahome/internal/service"
)

type contextKey string

const PlayerClaimsKey contextKey = "playerClaims"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequirePlayer validates the player JWT from the Authorization header
// or the token query param and stores the claims on the context.
func (m *AuthMiddleware) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, `{"message":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidatePlayerToken(token)
		if err != nil {
			http.Error(w, `{"message":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), PlayerClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PlayerClaims extracts the validated claims set by RequirePlayer.
func PlayerClaims(ctx context.Context) *model.PlayerClaims {
	claims, _ := ctx.Value(PlayerClaimsKey).(*model.PlayerClaims)
	return claims
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
