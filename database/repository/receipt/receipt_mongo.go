package receiptRepo

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

// MongoReceiptRepo implements ReceiptRepository using MongoDB.
type MongoReceiptRepo struct {
	coll *mongo.Collection
}

func NewMongoReceiptRepo() *MongoReceiptRepo {
	return &MongoReceiptRepo{coll: database.Collection("receipts")}
}

// EnsureIndexes creates the unique payment index backing idempotent creation.
func (repo *MongoReceiptRepo) EnsureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "payment_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.coll.Indexes().CreateOne(ctx, index); err != nil {
		log.Printf("failed to ensure receipt indexes: %v", err)
	}
}

func (repo *MongoReceiptRepo) CreateIdempotent(ctx context.Context, receipt *models.Receipt) (*models.Receipt, error) {
	receipt.IssuedAt = time.Now()
	if _, err := repo.coll.InsertOne(ctx, receipt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.GetByPaymentID(ctx, receipt.PaymentID)
		}
		return nil, fmt.Errorf("failed to insert receipt: %w", err)
	}
	return receipt, nil
}

func (repo *MongoReceiptRepo) GetByPaymentID(ctx context.Context, paymentID string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := repo.coll.FindOne(ctx, bson.M{"payment_id": paymentID}).Decode(&receipt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	return &receipt, nil
}
