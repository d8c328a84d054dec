package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triviahome/internal/model"
)

type StatsRepo interface {
	GetByUserID(ctx context.Context, userID string) (*model.UserStats, error)
	Save(ctx context.Context, stats *model.UserStats) error
	// IncrementGames bumps totalGames for an existing stats record.
	// A missing record is left alone; initial creation happens on the
	// first answered question.
	IncrementGames(ctx context.Context, userID string) error
	TopByWins(ctx context.Context, limit int) ([]*model.UserStats, error)
}

type statsRepo struct {
	collection *mongo.Collection
}

func NewStatsRepo(db *mongo.Database) StatsRepo {
	return &statsRepo{
		collection: db.Collection("userstats"),
	}
}

func (r *statsRepo) GetByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	var stats model.UserStats
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepo) Save(ctx context.Context, stats *model.UserStats) error {
	stats.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": stats.UserID}, stats, opts)
	return err
}

func (r *statsRepo) IncrementGames(ctx context.Context, userID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"totalGames": 1}},
	)
	return err
}

func (r *statsRepo) TopByWins(ctx context.Context, limit int) ([]*model.UserStats, error) {
	opts := options.Find().
		SetSort(bson.M{"totalWins": -1}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*model.UserStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
