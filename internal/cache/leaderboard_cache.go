package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:wins"

// LeaderboardCache handles Redis ZSET operations for the global
// wins leaderboard, refreshed whenever user stats are written.
type LeaderboardCache interface {
	UpdateWins(ctx context.Context, userID string, totalWins int) error
	GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, userID string) (int64, error)
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	UserID    string `json:"userId"`
	TotalWins int    `json:"totalWins"`
	Rank      int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) UpdateWins(ctx context.Context, userID string, totalWins int) error {
	return c.client.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(totalWins),
		Member: userID,
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			UserID:    z.Member.(string),
			TotalWins: int(z.Score),
			Rank:      i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, userID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, leaderboardKey, userID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
