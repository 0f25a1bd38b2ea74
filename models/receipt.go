package models

import "time"

// Receipt is a derived artifact keyed 1:1 by payment id. It is created
// lazily on the first completed payment; a duplicate-key conflict on
// creation resolves to a fetch of the existing receipt.
type Receipt struct {
	ID        string    `bson:"id" json:"id"`
	PaymentID string    `bson:"payment_id" json:"payment_id"`
	BookingID string    `bson:"booking_id" json:"booking_id"`
	Amount    float64   `bson:"amount" json:"amount"`
	Currency  string    `bson:"currency" json:"currency"`
	Provider  string    `bson:"provider" json:"provider"`
	IssuedAt  time.Time `bson:"issued_at" json:"issued_at"`
}
