// Command seed rebuilds the Redis wins leaderboard from the stats
// collection. Run it after restoring a database backup or wiping
// Redis, so the global leaderboard matches persisted stats again.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triviahome/internal/cache"
	"triviahome/internal/config"
	"triviahome/internal/model"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to ping Redis: %v", err)
	}

	leaderboard := cache.NewLeaderboardCache(rdb)
	statsColl := client.Database(cfg.MongoDatabase).Collection("userstats")

	cursor, err := statsColl.Find(ctx, bson.M{"totalWins": bson.M{"$gt": 0}})
	if err != nil {
		log.Fatalf("Failed to query stats: %v", err)
	}
	defer cursor.Close(ctx)

	seeded := 0
	for cursor.Next(ctx) {
		var stats model.UserStats
		if err := cursor.Decode(&stats); err != nil {
			log.Printf("skipping undecodable stats doc: %v", err)
			continue
		}
		if err := leaderboard.UpdateWins(ctx, stats.UserID, stats.TotalWins); err != nil {
			log.Fatalf("Failed to write leaderboard entry for %s: %v", stats.UserID, err)
		}
		seeded++
	}
	if err := cursor.Err(); err != nil {
		log.Fatalf("Cursor error: %v", err)
	}

	fmt.Printf("Seeded %d leaderboard entries\n", seeded)
}
