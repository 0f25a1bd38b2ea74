package refund

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "rideka/database/repository/booking"
	refundRepo "rideka/database/repository/refund"
	rideRepo "rideka/database/repository/ride"
	"rideka/models"
	"rideka/services/gateway"
	"rideka/services/notification"
	"rideka/services/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNothingToRefund   = errors.New("booking has no completed payments to refund")
	ErrNotBookingOwner   = errors.New("booking belongs to another rider")
	ErrInvalidSeatCount  = errors.New("new seat count must be positive and below the current count")
	ErrBookingNotPaid    = errors.New("booking has no refundable payment status")
	ErrBookingNotActive  = errors.New("booking is no longer active")
	ErrSeatsNotReducible = errors.New("could not reduce seats on the booking")
)

// DefaultRefundService is the production implementation.
type DefaultRefundService struct {
	Bookings     bookingRepo.BookingRepository
	Rides        rideRepo.RideRepository
	Payments     payment.PaymentService
	Refunds      refundRepo.RefundRepository
	Gateways     *gateway.Registry
	Notification notification.NotificationService
	Logger       *zap.Logger
}

// CancelWithRefund runs the cancel-then-refund flow. Cancellation, seat
// restoration and the pending refund row commit in one transaction; the
// external provider call runs after and only moves the refund record.
func (s *DefaultRefundService) CancelWithRefund(ctx context.Context, bookingID, userID string) error {
	amount, paymentIDs, err := s.Payments.SumCompletedByBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if amount <= 0 {
		return ErrNothingToRefund
	}

	src, err := s.refundSource(ctx, bookingID)
	if err != nil {
		return err
	}

	res, err := s.Bookings.CancelWithRefundPreparation(ctx, bookingRepo.CancelWithRefundArgs{
		BookingID:   bookingID,
		UserID:      userID,
		Amount:      amount,
		Currency:    src.Currency,
		Provider:    src.Provider,
		PhoneNumber: src.PhoneNumber,
		PaymentIDs:  paymentIDs,
		RefundType:  models.RefundTypeFull,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("cancel with refund rejected (%s): %s", res.DebugInfo, res.ErrorMessage)
	}

	refund, err := s.Refunds.GetByID(ctx, res.RefundID)
	if err != nil {
		return err
	}
	s.executeRefund(ctx, refund, src)
	return nil
}

// ReduceSeatsWithRefund shrinks a paid booking and refunds the difference.
func (s *DefaultRefundService) ReduceSeatsWithRefund(ctx context.Context, bookingID, userID string, newSeats int) (*models.Refund, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotBookingOwner
	}
	if booking.IsTerminal() {
		return nil, ErrBookingNotActive
	}
	switch booking.PaymentStatus {
	case models.BookingPaymentCompleted, models.BookingPaymentPartial, models.BookingPaymentPartialRefund:
	default:
		return nil, ErrBookingNotPaid
	}
	if newSeats <= 0 || newSeats >= booking.Seats {
		return nil, ErrInvalidSeatCount
	}

	ride, err := s.Rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}
	collected, paymentIDs, err := s.Payments.SumCompletedByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	src, err := s.refundSource(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// A partially paid booking may have collected less than the freed
	// seats are worth. Refund at most what was collected beyond the price
	// of the seats kept; never money that was never received.
	amount := float64(booking.Seats-newSeats) * ride.PricePerSeat
	if refundable := collected - float64(newSeats)*ride.PricePerSeat; amount > refundable {
		amount = refundable
	}
	if amount <= 0 {
		return nil, ErrNothingToRefund
	}

	reserved, err := s.Bookings.ReserveSeats(ctx, booking.RideID, userID, newSeats, &booking.ID)
	if err != nil {
		return nil, err
	}
	if !reserved.Success {
		return nil, fmt.Errorf("%w: %s", ErrSeatsNotReducible, reserved.ErrorMessage)
	}

	refund := &models.Refund{
		ID:          uuid.New().String(),
		BookingID:   bookingID,
		UserID:      userID,
		PaymentIDs:  paymentIDs,
		Type:        models.RefundTypePartial,
		Amount:      amount,
		Currency:    src.Currency,
		Provider:    src.Provider,
		PhoneNumber: src.PhoneNumber,
		Status:      models.PaymentStatusPending,
	}
	if err := s.Refunds.Create(ctx, refund); err != nil {
		return nil, err
	}

	s.executeRefund(ctx, refund, src)
	return s.Refunds.GetByID(ctx, refund.ID)
}

// executeRefund makes the external provider call for a pending refund row.
// Failures mark the row failed and stop there: the booking-side changes have
// already committed and must not be rolled back.
func (s *DefaultRefundService) executeRefund(ctx context.Context, refund *models.Refund, src *models.Payment) {
	gw, err := s.Gateways.For(refund.Provider)
	if err != nil {
		s.markFailed(ctx, refund, err.Error())
		return
	}

	res, err := gw.Refund(ctx, gateway.RefundRequest{
		Amount:        refund.Amount,
		Currency:      refund.Currency,
		PhoneNumber:   refund.PhoneNumber,
		Reference:     refund.ID,
		TransactionID: src.TransactionID,
	})
	if err != nil {
		s.markFailed(ctx, refund, err.Error())
		return
	}
	if !res.Success {
		s.markFailed(ctx, refund, res.Message)
		return
	}

	if res.TransactionID != "" {
		if err := s.Refunds.SetTransactionID(ctx, refund.ID, res.TransactionID); err != nil {
			s.Logger.Error("Failed to store refund transaction id",
				zap.String("refundId", refund.ID), zap.Error(err))
		}
	}

	// Most providers accept the refund and settle asynchronously. A few
	// report completion inline; apply it right away instead of waiting for
	// the sweep.
	next := gateway.MapStatus(refund.Provider, res.Status)
	if next != models.PaymentStatusCompleted {
		next = models.PaymentStatusProcessing
	}
	if err := s.ApplyRefundOutcome(ctx, refund, next, ""); err != nil {
		s.Logger.Error("Failed to apply refund outcome",
			zap.String("refundId", refund.ID), zap.String("status", next), zap.Error(err))
	}
}

func (s *DefaultRefundService) markFailed(ctx context.Context, refund *models.Refund, reason string) {
	s.Logger.Warn("Refund execution failed",
		zap.String("refundId", refund.ID),
		zap.String("bookingId", refund.BookingID),
		zap.String("reason", reason))
	if err := s.Refunds.UpdateStatus(ctx, refund.ID, models.PaymentStatusFailed, reason); err != nil {
		s.Logger.Error("Failed to mark refund failed", zap.String("refundId", refund.ID), zap.Error(err))
	}
}

// ApplyRefundOutcome persists a refund status and, on completion, settles
// the downstream records. The booking payment status is only restored when
// its current value still admits it, so a refund report arriving late can
// never resurrect a terminal booking state.
func (s *DefaultRefundService) ApplyRefundOutcome(ctx context.Context, refund *models.Refund, status, failureReason string) error {
	if refund.Status == status {
		return nil
	}
	if err := s.Refunds.UpdateStatus(ctx, refund.ID, status, failureReason); err != nil {
		return err
	}
	if status != models.PaymentStatusCompleted {
		return nil
	}

	switch refund.Type {
	case models.RefundTypeFull:
		// The full amount went back; the covered payments are settled.
		for _, pid := range refund.PaymentIDs {
			if _, err := s.Payments.UpdateStatus(ctx, pid, models.PaymentStatusRefunded, nil); err != nil {
				s.Logger.Error("Failed to mark payment refunded",
					zap.String("paymentId", pid), zap.String("refundId", refund.ID), zap.Error(err))
			}
		}
	case models.RefundTypePartial:
		changed, err := s.Bookings.SetPaymentStatusIf(ctx, refund.BookingID,
			models.BookingPaymentPartialRefund,
			[]string{models.BookingPaymentCompleted, models.BookingPaymentPartial})
		if err != nil {
			return err
		}
		if !changed {
			s.Logger.Info("Partial refund completed but booking payment status no longer restorable",
				zap.String("refundId", refund.ID), zap.String("bookingId", refund.BookingID))
		}
	}

	if err := s.Notification.SendRiderPushNotification(ctx, refund.UserID,
		"Refund completed",
		fmt.Sprintf("%.0f %s has been returned to your mobile money account.", refund.Amount, refund.Currency),
		map[string]string{"type": "refund_completed", "refundId": refund.ID}); err != nil {
		s.Logger.Warn("Push notification failed", zap.String("userId", refund.UserID), zap.Error(err))
	}
	return nil
}

// refundSource picks the most recent completed payment; its provider, phone
// number and transaction id are what the provider needs to send money back.
func (s *DefaultRefundService) refundSource(ctx context.Context, bookingID string) (*models.Payment, error) {
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	var src *models.Payment
	for i := range payments {
		if payments[i].Status != models.PaymentStatusCompleted {
			continue
		}
		if src == nil || payments[i].CreatedAt.After(src.CreatedAt) {
			src = &payments[i]
		}
	}
	if src == nil {
		return nil, ErrNothingToRefund
	}
	return src, nil
}
