package receiptRepo

import (
	"context"

	"rideka/models"
)

// ReceiptRepository defines the interface for receipt data access.
type ReceiptRepository interface {
	// CreateIdempotent inserts the receipt unless one already exists for
	// the same payment, in which case the existing receipt is returned.
	CreateIdempotent(ctx context.Context, receipt *models.Receipt) (*models.Receipt, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Receipt, error)
}
