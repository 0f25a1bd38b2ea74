package refundRepo

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

// MongoRefundRepo implements RefundRepository using MongoDB.
type MongoRefundRepo struct {
	coll *mongo.Collection
}

func NewMongoRefundRepo() *MongoRefundRepo {
	return &MongoRefundRepo{coll: database.Collection("refunds")}
}

func (repo *MongoRefundRepo) Create(ctx context.Context, refund *models.Refund) error {
	now := time.Now()
	refund.CreatedAt = now
	refund.UpdatedAt = now
	if _, err := repo.coll.InsertOne(ctx, refund); err != nil {
		return fmt.Errorf("failed to insert refund: %w", err)
	}
	return nil
}

func (repo *MongoRefundRepo) GetByID(ctx context.Context, id string) (*models.Refund, error) {
	return repo.findOne(ctx, bson.M{"id": id})
}

func (repo *MongoRefundRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Refund, error) {
	return repo.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (repo *MongoRefundRepo) findOne(ctx context.Context, filter bson.M) (*models.Refund, error) {
	var refund models.Refund
	err := repo.coll.FindOne(ctx, filter).Decode(&refund)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch refund: %w", err)
	}
	return &refund, nil
}

func (repo *MongoRefundRepo) UpdateStatus(ctx context.Context, id, status, failureReason string) error {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if failureReason != "" {
		set["failure_reason"] = failureReason
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update refund status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoRefundRepo) SetTransactionID(ctx context.Context, id, transactionID string) error {
	update := bson.M{"$set": bson.M{"transaction_id": transactionID, "updated_at": time.Now()}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set refund transaction id: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoRefundRepo) FindStale(ctx context.Context, olderThan time.Time) ([]models.Refund, error) {
	filter := bson.M{
		"status":     bson.M{"$in": bson.A{models.PaymentStatusPending, models.PaymentStatusProcessing}},
		"updated_at": bson.M{"$lt": olderThan},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale refunds: %w", err)
	}
	defer cursor.Close(ctx)

	var refunds []models.Refund
	if err := cursor.All(ctx, &refunds); err != nil {
		return nil, fmt.Errorf("failed to decode stale refunds: %w", err)
	}
	return refunds, nil
}
