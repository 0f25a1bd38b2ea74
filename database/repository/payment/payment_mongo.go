package paymentRepo

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

// MongoPaymentRepo implements PaymentRepository using MongoDB.
type MongoPaymentRepo struct {
	coll *mongo.Collection
}

func NewMongoPaymentRepo() *MongoPaymentRepo {
	return &MongoPaymentRepo{coll: database.Collection("payments")}
}

// Create relies on the unique idempotency-key index: a duplicate-key error
// means a retried client request, and resolves to the already-inserted row.
func (repo *MongoPaymentRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	if _, err := repo.coll.InsertOne(ctx, payment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, lookupErr := repo.GetByIdempotencyKey(ctx, payment.IdempotencyKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("duplicate payment lookup failed: %w", lookupErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return payment, nil
}

func (repo *MongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return repo.findOne(ctx, bson.M{"id": id})
}

func (repo *MongoPaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return repo.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (repo *MongoPaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	return repo.findOne(ctx, bson.M{"idempotency_key": key})
}

func (repo *MongoPaymentRepo) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := repo.coll.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return &payment, nil
}

func (repo *MongoPaymentRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	cursor, err := repo.coll.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, nil
}

// SumCompletedByBooking returns the cumulative completed amount and the ids
// of the contributing payments. Bookings topped up in several payments sum
// across all of them.
func (repo *MongoPaymentRepo) SumCompletedByBooking(ctx context.Context, bookingID string) (float64, []string, error) {
	payments, err := repo.ListByBooking(ctx, bookingID)
	if err != nil {
		return 0, nil, err
	}
	var total float64
	var ids []string
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			total += p.Amount
			ids = append(ids, p.ID)
		}
	}
	return total, ids, nil
}

func (repo *MongoPaymentRepo) UpdateStatus(ctx context.Context, id, status string, metadata map[string]string, paymentTime *time.Time) error {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if paymentTime != nil {
		set["payment_time"] = *paymentTime
	}
	for k, v := range metadata {
		set["metadata."+k] = v
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoPaymentRepo) SetTransactionID(ctx context.Context, id, transactionID string) error {
	update := bson.M{"$set": bson.M{"transaction_id": transactionID, "updated_at": time.Now()}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set payment transaction id: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoPaymentRepo) FindStale(ctx context.Context, olderThan time.Time) ([]models.Payment, error) {
	filter := bson.M{
		"status":     bson.M{"$in": bson.A{models.PaymentStatusPending, models.PaymentStatusProcessing}},
		"updated_at": bson.M{"$lt": olderThan},
	}
	cursor, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("failed to decode stale payments: %w", err)
	}
	return payments, nil
}
