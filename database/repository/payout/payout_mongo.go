package payoutRepo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rideka/database"
	"rideka/database/repository"
	"rideka/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPayoutRepo implements PayoutRepository using MongoDB.
type MongoPayoutRepo struct {
	coll *mongo.Collection
}

func NewMongoPayoutRepo() *MongoPayoutRepo {
	return &MongoPayoutRepo{coll: database.Collection("payouts")}
}

// EnsureIndexes creates the unique booking index that makes duplicate
// disbursement impossible at the data layer.
func (repo *MongoPayoutRepo) EnsureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("failed to ensure payout indexes: %v", err)
	}
}

func (repo *MongoPayoutRepo) Create(ctx context.Context, payout *models.Payout) (bool, *models.Payout, error) {
	now := time.Now()
	payout.CreatedAt = now
	payout.UpdatedAt = now

	if _, err := repo.coll.InsertOne(ctx, payout); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, lookupErr := repo.GetByBooking(ctx, payout.BookingID)
			if lookupErr != nil {
				return false, nil, fmt.Errorf("duplicate payout lookup failed: %w", lookupErr)
			}
			return false, existing, nil
		}
		return false, nil, fmt.Errorf("failed to insert payout: %w", err)
	}
	return true, payout, nil
}

func (repo *MongoPayoutRepo) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	return repo.findOne(ctx, bson.M{"id": id})
}

func (repo *MongoPayoutRepo) GetByBooking(ctx context.Context, bookingID string) (*models.Payout, error) {
	return repo.findOne(ctx, bson.M{"booking_id": bookingID})
}

func (repo *MongoPayoutRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payout, error) {
	return repo.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (repo *MongoPayoutRepo) findOne(ctx context.Context, filter bson.M) (*models.Payout, error) {
	var payout models.Payout
	err := repo.coll.FindOne(ctx, filter).Decode(&payout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payout: %w", err)
	}
	return &payout, nil
}

func (repo *MongoPayoutRepo) UpdateStatus(ctx context.Context, id, status, failureReason string) error {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if failureReason != "" {
		set["failure_reason"] = failureReason
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update payout status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoPayoutRepo) SetTransactionID(ctx context.Context, id, transactionID string) error {
	update := bson.M{"$set": bson.M{"transaction_id": transactionID, "updated_at": time.Now()}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set payout transaction id: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoPayoutRepo) RecordRetryAttempt(ctx context.Context, id string, attempt models.RetryAttempt, nextRetryAt *time.Time) error {
	set := bson.M{"updated_at": time.Now()}
	if nextRetryAt != nil {
		set["next_retry_at"] = *nextRetryAt
	}
	update := bson.M{
		"$push": bson.M{"retry_history": attempt},
		"$inc":  bson.M{"retry_count": 1},
		"$set":  set,
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to record payout retry: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoPayoutRepo) MarkRetryExhausted(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"retry_exhausted": true, "updated_at": time.Now()}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to mark payout retry exhausted: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoPayoutRepo) FindStale(ctx context.Context, olderThan time.Time) ([]models.Payout, error) {
	filter := bson.M{
		"status":     bson.M{"$in": bson.A{models.PaymentStatusPending, models.PaymentStatusProcessing}},
		"updated_at": bson.M{"$lt": olderThan},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, fmt.Errorf("failed to decode stale payouts: %w", err)
	}
	return payouts, nil
}

func (repo *MongoPayoutRepo) FindRetryable(ctx context.Context, now time.Time) ([]models.Payout, error) {
	filter := bson.M{
		"status":          models.PaymentStatusFailed,
		"retry_exhausted": false,
		"$or": bson.A{
			bson.M{"next_retry_at": bson.M{"$exists": false}},
			bson.M{"next_retry_at": bson.M{"$lte": now}},
		},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query retryable payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, fmt.Errorf("failed to decode retryable payouts: %w", err)
	}
	return payouts, nil
}
