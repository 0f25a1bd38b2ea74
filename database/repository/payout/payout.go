package payoutRepo

import (
	"context"
	"time"

	"rideka/models"
)

// PayoutRepository defines the interface for payout data access.
type PayoutRepository interface {
	// Create inserts a payout. The unique booking_id index guarantees at
	// most one payout per booking; a duplicate insert returns the existing
	// row and reports created=false.
	Create(ctx context.Context, payout *models.Payout) (created bool, existing *models.Payout, err error)
	GetByID(ctx context.Context, id string) (*models.Payout, error)
	GetByBooking(ctx context.Context, bookingID string) (*models.Payout, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payout, error)
	UpdateStatus(ctx context.Context, id, status, failureReason string) error
	SetTransactionID(ctx context.Context, id, transactionID string) error

	// RecordRetryAttempt appends to the retry history and bumps the count
	// and cooldown in one write.
	RecordRetryAttempt(ctx context.Context, id string, attempt models.RetryAttempt, nextRetryAt *time.Time) error
	MarkRetryExhausted(ctx context.Context, id string) error

	FindStale(ctx context.Context, olderThan time.Time) ([]models.Payout, error)

	// FindRetryable returns failed, non-exhausted payouts whose retry
	// cooldown has elapsed (or was never set).
	FindRetryable(ctx context.Context, now time.Time) ([]models.Payout, error)
}
