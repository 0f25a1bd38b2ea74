package bookingRepo

import (
	"context"
	"time"

	"rideka/models"
)

// ReservationResult is the outcome of the atomic seat-reservation primitive.
type ReservationResult struct {
	Success      bool
	BookingID    string
	ErrorMessage string
}

// CancelWithRefundArgs carries everything the atomic cancel-with-refund
// transaction needs to cancel a paid booking and seed its refund record.
type CancelWithRefundArgs struct {
	BookingID   string
	UserID      string
	Amount      float64
	Currency    string
	Provider    string
	PhoneNumber string
	PaymentIDs  []string
	RefundType  string
}

// CancelWithRefundResult reports the outcome of the cancel-with-refund
// transaction. DebugInfo carries the failing step for support tooling.
type CancelWithRefundResult struct {
	Success          bool
	BookingCancelled bool
	RefundID         string
	ErrorMessage     string
	DebugInfo        string
}

// BookingRepository defines the interface for booking data access,
// including the atomic primitives that own the seat-capacity invariant.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetActiveByRideAndUser(ctx context.Context, rideID, userID string) (*models.Booking, error)
	UpdateSeatsAndPickup(ctx context.Context, id string, seats int, pickupName string, pickupTime time.Time) error

	// ReserveSeats atomically creates a new booking (bookingID nil) or
	// resizes an existing one, adjusting ride seats_available in the same
	// transaction. Requests exceeding remaining capacity fail without any
	// write.
	ReserveSeats(ctx context.Context, rideID, userID string, seats int, bookingID *string) (*ReservationResult, error)

	// CancelAndRestoreSeats cancels a booking and returns its seats to the
	// ride in one transaction. Returns false when the booking is already
	// terminal.
	CancelAndRestoreSeats(ctx context.Context, bookingID string) (bool, error)

	// CancelWithRefundPreparation cancels a paid booking, restores its
	// seats, and inserts a pending refund record, all in one transaction.
	CancelWithRefundPreparation(ctx context.Context, args CancelWithRefundArgs) (*CancelWithRefundResult, error)

	// SetPaymentOutcome stamps payment_status/status after a payment event.
	SetPaymentOutcome(ctx context.Context, id, paymentStatus, status string) error

	// PromoteIfUnpaid flips a booking to the paid/pending_verification pair
	// only when its payment_status is still pending or failed. Reports
	// whether this call performed the promotion, so the creation-time
	// reconciliation runs its side effects exactly once.
	PromoteIfUnpaid(ctx context.Context, id string) (bool, error)

	// SetPaymentStatusIf updates payment_status only when the current value
	// is one of expected. Used by refund completion to avoid resurrecting
	// terminal states.
	SetPaymentStatusIf(ctx context.Context, id, next string, expected []string) (bool, error)

	// SetVerificationCode stores a fresh pickup code with its expiry.
	SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error

	// VerifyCode atomically checks a submitted pickup code against the
	// booking (unexpired, not yet verified) and marks it verified.
	VerifyCode(ctx context.Context, id, code string) (bool, error)

	// SetStatus updates the booking status only.
	SetStatus(ctx context.Context, id, status string) error
}
