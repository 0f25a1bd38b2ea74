package models

import "time"

// Booking statuses.
const (
	BookingStatusPending             = "pending"
	BookingStatusPendingVerification = "pending_verification"
	BookingStatusConfirmed           = "confirmed"
	BookingStatusCancelled           = "cancelled"
	BookingStatusCompleted           = "completed"
)

// Booking payment statuses.
const (
	BookingPaymentPending       = "pending"
	BookingPaymentPartial       = "partial"
	BookingPaymentCompleted     = "completed"
	BookingPaymentPartialRefund = "partial_refund"
	BookingPaymentFailed        = "failed"
)

// Booking links a rider to a ride for a number of seats. At most one
// non-terminal booking may exist per (ride, user); the reservation
// primitive enforces this together with the seat capacity invariant.
type Booking struct {
	ID              string    `bson:"id" json:"id"`
	RideID          string    `bson:"ride_id" json:"ride_id"`
	UserID          string    `bson:"user_id" json:"user_id"`
	Seats           int       `bson:"seats" json:"seats"`
	Status          string    `bson:"status" json:"status"`
	PaymentStatus   string    `bson:"payment_status" json:"payment_status"`
	PickupPointName string    `bson:"pickup_point_name" json:"pickup_point_name"`
	PickupTime      time.Time `bson:"pickup_time" json:"pickup_time"`

	// Pickup verification code shown to the rider and checked by the
	// driver. Verification gates the driver payout.
	VerificationCode string    `bson:"verification_code,omitempty" json:"-"`
	CodeExpiresAt    time.Time `bson:"code_expires_at,omitempty" json:"code_expires_at,omitempty"`
	CodeVerified     bool      `bson:"code_verified" json:"code_verified"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the booking can no longer change state.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted
}
