package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideka/database/repository"
	bookingRepo "rideka/database/repository/booking"
	rideRepo "rideka/database/repository/ride"
	"rideka/models"
	"rideka/services/orchestration"
	"rideka/services/payment"
	"rideka/services/refund"

	"go.uber.org/zap"
)

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Bookings     bookingRepo.BookingRepository
	Rides        rideRepo.RideRepository
	Payments     payment.PaymentService
	Orchestrator orchestration.Orchestrator
	Refunds      refund.RefundService
	Logger       *zap.Logger
}

// CreateBooking reserves seats through the atomic primitive, resolves the
// pickup point, and reconciles against any payment that completed before
// this booking row existed.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if req.Seats <= 0 {
		return nil, newBookingError(CodeInvalidSeatCount, "seats must be positive")
	}

	ride, err := s.Rides.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.Status == models.RideStatusCancelled {
		return nil, newBookingError(CodeRideCancelled, "ride has been cancelled")
	}

	pickup, ok := ride.PickupPointByName(req.PickupPointName)
	if !ok {
		return nil, newBookingError(CodeUnknownPickupPoint, fmt.Sprintf("pickup point %q does not exist on this ride", req.PickupPointName))
	}
	pickupTime := ride.DepartureTime.Add(time.Duration(pickup.OffsetMinutes) * time.Minute)

	// One active booking per rider per ride: an existing one is resized
	// instead of duplicated.
	var existingID *string
	existing, err := s.Bookings.GetActiveByRideAndUser(ctx, req.RideID, req.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		existingID = &existing.ID
	}

	res, err := s.Bookings.ReserveSeats(ctx, req.RideID, req.UserID, req.Seats, existingID)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, newBookingError(CodeSeatsUnavailable, res.ErrorMessage)
	}

	if err := s.Bookings.UpdateSeatsAndPickup(ctx, res.BookingID, req.Seats, pickup.Name, pickupTime); err != nil {
		return nil, err
	}

	// A grown paid booking owes the delta; it sits at partial until the
	// additional payment lands. Conditional so a concurrent payment
	// completion is never overwritten blindly.
	if existing != nil && req.Seats > existing.Seats {
		demoted, err := s.Bookings.SetPaymentStatusIf(ctx, res.BookingID, models.BookingPaymentPartial,
			[]string{models.BookingPaymentCompleted, models.BookingPaymentPartialRefund})
		if err != nil {
			return nil, err
		}
		if demoted {
			s.Logger.Info("Booking grew beyond its paid amount",
				zap.String("bookingId", res.BookingID),
				zap.Int("seats", req.Seats))
		}
	}

	booking, err := s.Bookings.GetByID(ctx, res.BookingID)
	if err != nil {
		return nil, err
	}

	if err := s.reconcileCompletedPayment(ctx, booking); err != nil {
		// The booking exists and the seats are held; reconciliation gets
		// another chance from the sweep.
		s.Logger.Error("Creation-time payment reconciliation failed",
			zap.String("bookingId", booking.ID), zap.Error(err))
	}

	return s.Bookings.GetByID(ctx, booking.ID)
}

// reconcileCompletedPayment closes the race where the provider confirmed a
// payment before the booking insert finished: the orchestrator aborts in
// that case and leaves the promotion to this path.
func (s *DefaultBookingService) reconcileCompletedPayment(ctx context.Context, booking *models.Booking) error {
	if booking.PaymentStatus != models.BookingPaymentPending && booking.PaymentStatus != models.BookingPaymentFailed {
		return nil
	}
	payments, err := s.Payments.ListByBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	for i := range payments {
		if payments[i].Status == models.PaymentStatusCompleted {
			return s.Orchestrator.ReconcileCompletedPayment(ctx, booking, &payments[i])
		}
	}
	return nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

// CalculateAdditionalPaymentAmount charges only the delta seats on an
// already-paid booking.
func (s *DefaultBookingService) CalculateAdditionalPaymentAmount(ctx context.Context, bookingID string, newSeats int) (float64, error) {
	if newSeats <= 0 {
		return 0, newBookingError(CodeInvalidSeatCount, "seats must be positive")
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if booking.IsTerminal() {
		return 0, newBookingError(CodeBookingNotActive, "booking is no longer active")
	}
	ride, err := s.Rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return 0, err
	}

	switch booking.PaymentStatus {
	case models.BookingPaymentCompleted, models.BookingPaymentPartialRefund:
		if newSeats < booking.Seats {
			return 0, newBookingError(CodeSeatReduction, "reducing seats on a paid booking requires the refund flow")
		}
		return float64(newSeats-booking.Seats) * ride.PricePerSeat, nil
	default:
		return float64(newSeats) * ride.PricePerSeat, nil
	}
}

// CancelBooking cancels the rider's booking. Once the driver has verified
// the pickup code the ride is considered rendered and cancellation is
// always rejected.
func (s *DefaultBookingService) CancelBooking(ctx context.Context, bookingID, userID string) error {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return newBookingError(CodeNotBookingOwner, "booking belongs to another rider")
	}
	if booking.CodeVerified {
		return newBookingError(CodeAlreadyVerified, "booking can no longer be cancelled: pickup code already verified")
	}
	if booking.IsTerminal() {
		return newBookingError(CodeBookingNotActive, "booking is no longer active")
	}

	switch booking.PaymentStatus {
	case models.BookingPaymentCompleted, models.BookingPaymentPartial, models.BookingPaymentPartialRefund:
		return s.Refunds.CancelWithRefund(ctx, bookingID, userID)
	}

	cancelled, err := s.Bookings.CancelAndRestoreSeats(ctx, bookingID)
	if err != nil {
		return err
	}
	if !cancelled {
		return newBookingError(CodeBookingNotActive, "booking is no longer active")
	}
	return nil
}
