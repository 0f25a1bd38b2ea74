package booking

import (
	"context"

	"rideka/models"
)

// CreateBookingRequest carries the input for a new or resized booking.
type CreateBookingRequest struct {
	RideID          string `json:"ride_id"`
	UserID          string `json:"user_id"`
	Seats           int    `json:"seats"`
	PickupPointName string `json:"pickup_point_name"`
}

// BookingService orchestrates seat reservation, pickup resolution and
// creation-time payment reconciliation.
type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)

	// CalculateAdditionalPaymentAmount returns what a rider owes to move an
	// existing booking to newSeats. Reducing seats on a paid booking is
	// rejected here; that path is the explicit reduce-with-refund
	// operation.
	CalculateAdditionalPaymentAmount(ctx context.Context, bookingID string, newSeats int) (float64, error)

	CancelBooking(ctx context.Context, bookingID, userID string) error
}
