package paymentRepo

import (
	"context"
	"time"

	"rideka/models"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	// Create inserts a payment. When a payment with the same idempotency
	// key already exists, the existing row is returned and no insert
	// happens.
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error)
	SumCompletedByBooking(ctx context.Context, bookingID string) (float64, []string, error)
	UpdateStatus(ctx context.Context, id, status string, metadata map[string]string, paymentTime *time.Time) error
	SetTransactionID(ctx context.Context, id, transactionID string) error

	// FindStale returns payments stuck in a non-terminal status for longer
	// than the staleness threshold.
	FindStale(ctx context.Context, olderThan time.Time) ([]models.Payment, error)
}
