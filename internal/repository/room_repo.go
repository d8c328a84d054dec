package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"triviahome/internal/model"
)

type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, roomID string) (*model.Room, error)
	UpdateSettings(ctx context.Context, roomID string, settings model.RoomSettings) error
	Delete(ctx context.Context, roomID string) error
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

func (r *roomRepo) GetByID(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Room not found
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) UpdateSettings(ctx context.Context, roomID string, settings model.RoomSettings) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"roomId": roomID},
		bson.M{"$set": bson.M{"settings": settings}},
	)
	return err
}

func (r *roomRepo) Delete(ctx context.Context, roomID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"roomId": roomID})
	return err
}
