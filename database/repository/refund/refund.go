package refundRepo

import (
	"context"
	"time"

	"rideka/models"
)

// RefundRepository defines the interface for refund data access.
type RefundRepository interface {
	Create(ctx context.Context, refund *models.Refund) error
	GetByID(ctx context.Context, id string) (*models.Refund, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Refund, error)
	UpdateStatus(ctx context.Context, id, status, failureReason string) error
	SetTransactionID(ctx context.Context, id, transactionID string) error
	FindStale(ctx context.Context, olderThan time.Time) ([]models.Refund, error)
}
