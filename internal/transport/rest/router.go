package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"triviahome/internal/cache"
	"triviahome/internal/game"
	"triviahome/internal/repository"
	"triviahome/internal/service"
	"triviahome/internal/transport/rest/handler"
	"triviahome/internal/transport/rest/middleware"
	"triviahome/internal/transport/ws"
	"triviahome/internal/trivia"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	Coordinator *game.Coordinator
	RoomRepo    repository.RoomRepo
	UserRepo    repository.UserRepo
	StatsRepo   repository.StatsRepo
	GameRepo    repository.GameRepo
	Leaderboard cache.LeaderboardCache
	Categories  cache.CategoryCache
	Trivia      *trivia.Client
	WSHub       *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomRepo, c.UserRepo, c.AuthService)
	statsHandler := handler.NewStatsHandler(c.StatsRepo, c.Leaderboard)
	userHandler := handler.NewUserHandler(c.UserRepo)
	triviaHandler := handler.NewTriviaHandler(c.Trivia, c.Categories)
	gameHandler := handler.NewGameHandler(c.GameRepo)
	wsHandler := ws.NewHandler(c.WSHub, c.Coordinator, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Room lifecycle
	api.HandleFunc("/rooms/create", roomHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/rooms/join", roomHandler.Join).Methods("POST", "OPTIONS")

	// Trivia passthrough
	api.HandleFunc("/categories", triviaHandler.Categories).Methods("GET", "OPTIONS")
	api.HandleFunc("/questions", triviaHandler.Questions).Methods("GET", "OPTIONS")

	// Stats and profiles
	api.HandleFunc("/stats/global/top", statsHandler.GlobalTop).Methods("GET", "OPTIONS")
	api.HandleFunc("/stats/{userId}", statsHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/users/{username}", userHandler.Get).Methods("GET", "OPTIONS")

	// Member routes (require a room-scoped player token)
	memberRoutes := api.NewRoute().Subrouter()
	memberRoutes.Use(authMW.RequirePlayer)
	memberRoutes.HandleFunc("/rooms/{roomId}/games", gameHandler.History).Methods("GET", "OPTIONS")

	// WebSocket (token in query param)
	r.HandleFunc("/ws", wsHandler.Serve).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
