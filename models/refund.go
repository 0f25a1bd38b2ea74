package models

import "time"

// Refund types.
const (
	RefundTypeFull    = "full"
	RefundTypePartial = "partial"
)

// Refund is a reversal record for one booking, covering one or more of its
// payments. A refund whose external call failed keeps its row with status
// failed so it stays auditable and retryable.
type Refund struct {
	ID            string    `bson:"id" json:"id"`
	BookingID     string    `bson:"booking_id" json:"booking_id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	PaymentIDs    []string  `bson:"payment_ids" json:"payment_ids"`
	Type          string    `bson:"type" json:"type"`
	Amount        float64   `bson:"amount" json:"amount"`
	Currency      string    `bson:"currency" json:"currency"`
	Provider      string    `bson:"provider" json:"provider"`
	PhoneNumber   string    `bson:"phone_number" json:"phone_number"`
	TransactionID string    `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status        string    `bson:"status" json:"status"`
	FailureReason string    `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
