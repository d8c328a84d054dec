package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all process configuration, loaded from the environment
// (with an optional .env file for local development).
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string
	JWTSecret     string
	TriviaBaseURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "triviahome"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:      getEnv("PORT", "5000"),
		JWTSecret:     getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		TriviaBaseURL: getEnv("TRIVIA_API_URL", "https://opentdb.com"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
