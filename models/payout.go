package models

import "time"

// Payout statuses reuse the payment status vocabulary; a payout follows the
// same pending -> processing -> completed/failed lifecycle.

// RetryAttempt records one automatic re-attempt of a failed payout.
type RetryAttempt struct {
	At            time.Time `bson:"at" json:"at"`
	TransactionID string    `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status        string    `bson:"status" json:"status"`
	Reason        string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Payout is the driver disbursement for one booking: the cumulative
// completed payments minus transaction fee and commission. At most one
// payout exists per booking.
type Payout struct {
	ID             string            `bson:"id" json:"id"`
	BookingID      string            `bson:"booking_id" json:"booking_id"`
	RideID         string            `bson:"ride_id" json:"ride_id"`
	DriverID       string            `bson:"driver_id" json:"driver_id"`
	Amount         float64           `bson:"amount" json:"amount"`
	OriginalAmount float64           `bson:"original_amount" json:"original_amount"`
	TransactionFee float64           `bson:"transaction_fee" json:"transaction_fee"`
	Commission     float64           `bson:"commission" json:"commission"`
	Currency       string            `bson:"currency" json:"currency"`
	Provider       string            `bson:"provider" json:"provider"`
	PhoneNumber    string            `bson:"phone_number" json:"phone_number"`
	TransactionID  string            `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status         string            `bson:"status" json:"status"`
	FailureReason  string            `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	RetryCount     int               `bson:"retry_count" json:"retry_count"`
	RetryHistory   []RetryAttempt    `bson:"retry_history,omitempty" json:"retry_history,omitempty"`
	NextRetryAt    *time.Time        `bson:"next_retry_at,omitempty" json:"next_retry_at,omitempty"`
	RetryExhausted bool              `bson:"retry_exhausted" json:"retry_exhausted"`
	Metadata       map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updated_at"`
}
