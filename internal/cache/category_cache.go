package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"triviahome/internal/model"
)

const categoriesKey = "trivia:categories"

// CategoryCache caches the upstream category list in Redis. The
// upstream list changes rarely, so a daily TTL keeps the lobby
// category picker off the external API.
type CategoryCache interface {
	Get(ctx context.Context) ([]model.Category, error)
	Set(ctx context.Context, categories []model.Category) error
}

type categoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCategoryCache creates a new category cache
func NewCategoryCache(client *redis.Client) CategoryCache {
	return &categoryCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *categoryCache) Get(ctx context.Context) ([]model.Category, error) {
	data, err := c.client.Get(ctx, categoriesKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var categories []model.Category
	if err := json.Unmarshal([]byte(data), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *categoryCache) Set(ctx context.Context, categories []model.Category) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, categoriesKey, data, c.ttl).Err()
}
