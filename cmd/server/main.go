package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triviahome/internal/cache"
	"triviahome/internal/config"
	"triviahome/internal/game"
	"triviahome/internal/repository"
	"triviahome/internal/service"
	"triviahome/internal/transport/rest"
	"triviahome/internal/transport/ws"
	"triviahome/internal/trivia"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize repositories
	roomRepo := repository.NewRoomRepo(db)
	userRepo := repository.NewUserRepo(db)
	statsRepo := repository.NewStatsRepo(db)
	gameRepo := repository.NewGameRepo(db)

	// Initialize caches and services
	leaderboard := cache.NewLeaderboardCache(rdb)
	categoryCache := cache.NewCategoryCache(rdb)
	authSvc := service.NewAuthService(cfg.JWTSecret)
	triviaClient := trivia.NewClient(cfg.TriviaBaseURL)

	// Initialize WebSocket hub and game coordinator
	wsHub := ws.NewHub()
	coord := game.NewCoordinator(roomRepo, userRepo, statsRepo, gameRepo, leaderboard, triviaClient, wsHub)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go coord.Run(runCtx)
	log.Println("Game coordinator started")

	// Create router with container
	container := &rest.Container{
		AuthService: authSvc,
		Coordinator: coord,
		RoomRepo:    roomRepo,
		UserRepo:    userRepo,
		StatsRepo:   statsRepo,
		GameRepo:    gameRepo,
		Leaderboard: leaderboard,
		Categories:  categoryCache,
		Trivia:      triviaClient,
		WSHub:       wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /api/rooms/create")
		log.Println("  POST /api/rooms/join")
		log.Println("  GET  /api/categories")
		log.Println("  GET  /api/questions")
		log.Println("  GET  /api/stats/{userId}")
		log.Println("  GET  /api/stats/global/top")
		log.Println("  GET  /api/rooms/{roomId}/games")
		log.Println("  GET  /api/users/{username}")
		log.Println("  WS   /ws")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	stop()

	log.Println("Server exited")
}
