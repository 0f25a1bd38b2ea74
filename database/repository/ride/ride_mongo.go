package rideRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideka/database"
	"rideka/database/repository"
	"rideka/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRideRepo implements RideRepository using MongoDB.
type MongoRideRepo struct {
	coll *mongo.Collection
}

func NewMongoRideRepo() *MongoRideRepo {
	return &MongoRideRepo{coll: database.Collection("rides")}
}

func (repo *MongoRideRepo) GetByID(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch ride %s: %w", id, err)
	}
	return &ride, nil
}

func (repo *MongoRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	if _, err := repo.coll.InsertOne(ctx, ride); err != nil {
		return fmt.Errorf("failed to insert ride: %w", err)
	}
	return nil
}

func (repo *MongoRideRepo) UpdateStatus(ctx context.Context, id, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update ride status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
