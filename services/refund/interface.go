package refund

import (
	"context"

	"rideka/models"
)

// RefundService owns both refund flows: full refund on cancellation of a
// paid booking, and partial refund when a rider reduces seats on a paid
// booking. It also applies provider-reported refund outcomes, which the
// reconciliation sweep reuses for refunds stuck in processing.
type RefundService interface {
	// CancelWithRefund cancels a paid booking, restores its seats and runs
	// the full refund. The cancellation commits before the external call:
	// a provider failure leaves a failed refund row behind, never an
	// un-cancelled booking.
	CancelWithRefund(ctx context.Context, bookingID, userID string) error

	// ReduceSeatsWithRefund shrinks a paid booking to newSeats, returning
	// the freed seats to the ride, and refunds the price difference.
	ReduceSeatsWithRefund(ctx context.Context, bookingID, userID string, newSeats int) (*models.Refund, error)

	// ApplyRefundOutcome moves a refund record to the provider-reported
	// status and, on completion, restores the booking payment status and
	// settles the covered payments.
	ApplyRefundOutcome(ctx context.Context, refund *models.Refund, status, failureReason string) error
}
