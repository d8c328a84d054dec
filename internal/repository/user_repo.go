package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triviahome/internal/model"
)

type UserRepo interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	// IncrementCoins adds delta to the user's coin balance, creating the
	// user document if it does not exist. Username is matched
	// case-insensitively (stored lowercase).
	IncrementCoins(ctx context.Context, username string, delta int) error
}

type userRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	return &userRepo{
		collection: db.Collection("users"),
	}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"username": strings.ToLower(username)}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.Username = strings.ToLower(user.Username)
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

func (r *userRepo) IncrementCoins(ctx context.Context, username string, delta int) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"username": strings.ToLower(username)},
		bson.M{
			"$inc":         bson.M{"coins": delta},
			"$setOnInsert": bson.M{"createdAt": time.Now()},
		},
		opts,
	)
	return err
}
