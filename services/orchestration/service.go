package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideka/database/repository"
	bookingRepo "rideka/database/repository/booking"
	receiptRepo "rideka/database/repository/receipt"
	rideRepo "rideka/database/repository/ride"
	"rideka/models"
	"rideka/services/notification"
	"rideka/services/payment"
	"rideka/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator is the single entry point for every payment status change.
// Webhooks and the reconciliation sweep both go through HandleStatusChange,
// so side-effect logic can never diverge between the two triggers.
type Orchestrator interface {
	HandleStatusChange(ctx context.Context, p *models.Payment, next string, metadata map[string]string) error

	// ReconcileCompletedPayment closes the webhook/creation race: a booking
	// created after its payment already completed inherits the completed
	// outcome, with the side effects running exactly once.
	ReconcileCompletedPayment(ctx context.Context, booking *models.Booking, p *models.Payment) error
}

// DefaultOrchestrator is the production implementation.
type DefaultOrchestrator struct {
	Payments     payment.PaymentService
	Bookings     bookingRepo.BookingRepository
	Rides        rideRepo.RideRepository
	Receipts     receiptRepo.ReceiptRepository
	Notification notification.NotificationService
	Logger       *zap.Logger

	CodeTTL time.Duration

	// CacheCode mirrors a fresh verification code in the code cache.
	// Best-effort; nil disables the mirror.
	CacheCode func(ctx context.Context, bookingID, code string, ttl time.Duration) error
}

// HandleStatusChange validates and persists the transition, then runs the
// side-effect workflow for the new status. Redelivered webhooks short-circuit
// before any write: a payment already in the target status is a no-op.
func (o *DefaultOrchestrator) HandleStatusChange(ctx context.Context, p *models.Payment, next string, metadata map[string]string) error {
	if p.Status == next {
		o.Logger.Debug("Payment already in target status, skipping",
			zap.String("paymentId", p.ID), zap.String("status", next))
		return nil
	}

	// A success report can land while the payment is still pending (the
	// provider confirmed before our initiation write finished). Step through
	// processing so only table-listed transitions are ever applied.
	if p.Status == models.PaymentStatusPending && next == models.PaymentStatusCompleted {
		stepped, err := o.Payments.UpdateStatus(ctx, p.ID, models.PaymentStatusProcessing, nil)
		if err != nil {
			return err
		}
		p = stepped
	}

	updated, err := o.Payments.UpdateStatus(ctx, p.ID, next, metadata)
	if err != nil {
		var invalid *payment.InvalidTransitionError
		if errors.As(err, &invalid) {
			o.Logger.Warn("Rejected illegal payment transition",
				zap.String("paymentId", p.ID),
				zap.String("from", invalid.From),
				zap.String("to", invalid.To))
		}
		return err
	}

	switch next {
	case models.PaymentStatusCompleted:
		return o.onCompleted(ctx, updated)
	case models.PaymentStatusFailed:
		return o.onFailed(ctx, updated)
	}
	return nil
}

// onCompleted runs the payment-success workflow: booking promotion,
// verification code issuance, receipt, notifications. If the booking row
// does not exist yet (the payment raced ahead of the booking insert), the
// workflow aborts silently; the booking-creation path reconciles later.
func (o *DefaultOrchestrator) onCompleted(ctx context.Context, p *models.Payment) error {
	booking, err := o.Bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			o.Logger.Info("Payment completed before booking exists, deferring to creation-time reconciliation",
				zap.String("paymentId", p.ID), zap.String("bookingId", p.BookingID))
			return nil
		}
		return err
	}

	paymentStatus, err := o.bookingPaymentStatus(ctx, booking)
	if err != nil {
		return err
	}
	if err := o.Bookings.SetPaymentOutcome(ctx, booking.ID, paymentStatus, models.BookingStatusPendingVerification); err != nil {
		return err
	}

	code, err := o.issueVerificationCode(ctx, booking.ID)
	if err != nil {
		return err
	}

	// Receipt creation is idempotent and never blocks the state transition.
	receipt := &models.Receipt{
		ID:        uuid.New().String(),
		PaymentID: p.ID,
		BookingID: booking.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Provider:  p.Provider,
	}
	if _, err := o.Receipts.CreateIdempotent(ctx, receipt); err != nil {
		o.Logger.Error("Failed to create receipt", zap.String("paymentId", p.ID), zap.Error(err))
	}

	o.notifyPaymentCompleted(booking, p, code)
	return nil
}

// onFailed cancels the booking, restores its seats and tells the rider.
func (o *DefaultOrchestrator) onFailed(ctx context.Context, p *models.Payment) error {
	if _, err := o.Bookings.CancelAndRestoreSeats(ctx, p.BookingID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	if err := o.Bookings.SetPaymentOutcome(ctx, p.BookingID, models.BookingPaymentFailed, models.BookingStatusCancelled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			o.Logger.Info("Payment failed before booking exists",
				zap.String("paymentId", p.ID), zap.String("bookingId", p.BookingID))
			return nil
		}
		return err
	}

	booking, err := o.Bookings.GetByID(ctx, p.BookingID)
	if err == nil {
		o.notifyAsync(booking.UserID, "rider", "Payment failed",
			"Your payment could not be completed. Tap to try again.",
			map[string]string{
				"type":      "payment_failed",
				"bookingId": booking.ID,
				"retryLink": fmt.Sprintf("rideka://bookings/%s/pay", booking.ID),
			})
	}
	return nil
}

// ReconcileCompletedPayment promotes a booking whose payment completed
// before the booking row was committed. The conditional promotion is the
// exactly-once guard: a second call (or a concurrent webhook) finds the
// booking already promoted and does nothing.
func (o *DefaultOrchestrator) ReconcileCompletedPayment(ctx context.Context, booking *models.Booking, p *models.Payment) error {
	promoted, err := o.Bookings.PromoteIfUnpaid(ctx, booking.ID)
	if err != nil {
		return err
	}
	if !promoted {
		return nil
	}
	o.Logger.Info("Promoted booking from pre-existing completed payment",
		zap.String("bookingId", booking.ID), zap.String("paymentId", p.ID))

	code, err := o.issueVerificationCode(ctx, booking.ID)
	if err != nil {
		return err
	}

	receipt := &models.Receipt{
		ID:        uuid.New().String(),
		PaymentID: p.ID,
		BookingID: booking.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Provider:  p.Provider,
	}
	if _, err := o.Receipts.CreateIdempotent(ctx, receipt); err != nil {
		o.Logger.Error("Failed to create receipt", zap.String("paymentId", p.ID), zap.Error(err))
	}

	o.notifyPaymentCompleted(booking, p, code)
	return nil
}

// bookingPaymentStatus decides completed vs partial from the cumulative
// completed amount against the ride total.
func (o *DefaultOrchestrator) bookingPaymentStatus(ctx context.Context, booking *models.Booking) (string, error) {
	paid, _, err := o.Payments.SumCompletedByBooking(ctx, booking.ID)
	if err != nil {
		return "", err
	}
	ride, err := o.Rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return "", err
	}
	if paid < ride.PricePerSeat*float64(booking.Seats) {
		return models.BookingPaymentPartial, nil
	}
	return models.BookingPaymentCompleted, nil
}

func (o *DefaultOrchestrator) issueVerificationCode(ctx context.Context, bookingID string) (string, error) {
	code, err := utils.GenerateVerificationCode(6)
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(o.CodeTTL)
	if err := o.Bookings.SetVerificationCode(ctx, bookingID, code, expiresAt); err != nil {
		return "", err
	}
	if o.CacheCode != nil {
		if err := o.CacheCode(ctx, bookingID, code, o.CodeTTL); err != nil {
			o.Logger.Warn("Failed to cache verification code", zap.String("bookingId", bookingID), zap.Error(err))
		}
	}
	return code, nil
}

// notifyPaymentCompleted pushes to both parties. The driver's message
// deliberately omits the verification code: only the rider may present it.
func (o *DefaultOrchestrator) notifyPaymentCompleted(booking *models.Booking, p *models.Payment, code string) {
	o.notifyAsync(booking.UserID, "rider", "Payment received",
		fmt.Sprintf("Your payment of %.0f %s is confirmed. Your pickup code is %s.", p.Amount, p.Currency, code),
		map[string]string{
			"type":             "payment_completed",
			"bookingId":        booking.ID,
			"verificationCode": code,
		})

	driverID := o.driverForBooking(booking)
	if driverID != "" {
		o.notifyAsync(driverID, "driver", "Seat booked",
			fmt.Sprintf("A rider paid for %d seat(s). Check the code at pickup.", booking.Seats),
			map[string]string{
				"type":      "booking_paid",
				"bookingId": booking.ID,
			})
	}
}

func (o *DefaultOrchestrator) driverForBooking(booking *models.Booking) string {
	ride, err := o.Rides.GetByID(context.Background(), booking.RideID)
	if err != nil {
		o.Logger.Error("Failed to resolve ride for driver notification",
			zap.String("bookingId", booking.ID), zap.Error(err))
		return ""
	}
	return ride.DriverID
}

// notifyAsync fires a push without blocking or failing the caller.
func (o *DefaultOrchestrator) notifyAsync(userID, role, title, body string, data map[string]string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		if role == "driver" {
			err = o.Notification.SendDriverPushNotification(ctx, userID, title, body, data)
		} else {
			err = o.Notification.SendRiderPushNotification(ctx, userID, title, body, data)
		}
		if err != nil {
			o.Logger.Warn("Push notification failed", zap.String("userId", userID), zap.Error(err))
		}
	}()
}
