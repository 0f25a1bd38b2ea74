package payment

import (
	"context"
	"time"

	"rideka/models"
)

// CreatePaymentRequest carries the input for a new payment attempt.
type CreatePaymentRequest struct {
	BookingID      string  `json:"booking_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Provider       string  `json:"provider"`
	PhoneNumber    string  `json:"phone_number"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// PaymentService owns payment records: idempotent creation, lookups and
// transition-guarded status updates.
type PaymentService interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error)
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error)
	SumCompletedByBooking(ctx context.Context, bookingID string) (float64, []string, error)

	// UpdateStatus rejects transitions outside the allowed graph with an
	// *InvalidTransitionError before touching the record. Entering
	// completed stamps the payment time.
	UpdateStatus(ctx context.Context, id, next string, metadata map[string]string) (*models.Payment, error)

	SetTransactionID(ctx context.Context, id, transactionID string) error
	FindStale(ctx context.Context, olderThan time.Time) ([]models.Payment, error)
}
