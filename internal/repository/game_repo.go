package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triviahome/internal/model"
)

type GameRepo interface {
	Create(ctx context.Context, game *model.Game) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]*model.Game, error)
}

type gameRepo struct {
	collection *mongo.Collection
}

func NewGameRepo(db *mongo.Database) GameRepo {
	return &gameRepo{
		collection: db.Collection("games"),
	}
}

func (r *gameRepo) Create(ctx context.Context, game *model.Game) error {
	_, err := r.collection.InsertOne(ctx, game)
	return err
}

func (r *gameRepo) ListByRoom(ctx context.Context, roomID string, limit int) ([]*model.Game, error) {
	opts := options.Find().
		SetSort(bson.M{"endTime": -1}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*model.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	return games, nil
}
