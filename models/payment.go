package models

import "time"

// Payment statuses. Transitions between them are restricted to the graph
// enforced by services/payment.ValidateTransition.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
	PaymentStatusRefunded   = "refunded"
)

// Mobile money providers.
const (
	ProviderMTN     = "mtn"
	ProviderOrange  = "orange"
	ProviderPawaPay = "pawapay"
)

// Payment is one attempt to collect money for a booking. A booking may
// accumulate several completed payments (seat top-ups).
type Payment struct {
	ID             string            `bson:"id" json:"id"`
	BookingID      string            `bson:"booking_id" json:"booking_id"`
	Amount         float64           `bson:"amount" json:"amount"`
	Currency       string            `bson:"currency" json:"currency"`
	Provider       string            `bson:"provider" json:"provider"`
	PhoneNumber    string            `bson:"phone_number" json:"phone_number"`
	TransactionID  string            `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	IdempotencyKey string            `bson:"idempotency_key" json:"idempotency_key"`
	Status         string            `bson:"status" json:"status"`
	PaymentTime    *time.Time        `bson:"payment_time,omitempty" json:"payment_time,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updated_at"`
}

// IsTerminalPaymentStatus reports whether a payment status admits no
// further transitions.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}
