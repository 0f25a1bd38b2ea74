package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "rideka/database/repository/booking"
	payoutRepo "rideka/database/repository/payout"
	rideRepo "rideka/database/repository/ride"
	userRepo "rideka/database/repository/user"
	"rideka/models"
	"rideka/services/gateway"
	"rideka/services/notification"
	"rideka/services/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotRideDriver     = errors.New("caller is not the driver of this ride")
	ErrBookingNotPaid    = errors.New("booking is not paid")
	ErrInvalidCode       = errors.New("verification code is invalid, expired or already used")
	ErrNothingToDisburse = errors.New("booking has no completed payments to disburse")
)

// DefaultPayoutService is the production implementation.
type DefaultPayoutService struct {
	Bookings     bookingRepo.BookingRepository
	Rides        rideRepo.RideRepository
	Users        userRepo.UserRepository
	Payments     payment.PaymentService
	Payouts      payoutRepo.PayoutRepository
	Gateways     *gateway.Registry
	Notification notification.NotificationService
	Logger       *zap.Logger

	TransactionFeeRate float64
	CommissionRate     float64
	MaxRetries         int
	RetryBackoff       time.Duration

	// DropCode removes the mirrored verification code from the code cache
	// after a successful verification. Best-effort; nil disables it.
	DropCode func(ctx context.Context, bookingID string) error
}

// VerifyAndRelease is the driver-side pickup flow: check the code, then pay
// the driver. The conditional code check and the unique payout index are the
// two guards; everything between them is replayable.
func (s *DefaultPayoutService) VerifyAndRelease(ctx context.Context, bookingID, driverID, code string) (*models.Payout, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	ride, err := s.Rides.GetByID(ctx, booking.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrNotRideDriver
	}
	switch booking.PaymentStatus {
	case models.BookingPaymentCompleted, models.BookingPaymentPartial:
	default:
		return nil, ErrBookingNotPaid
	}

	verified, err := s.Bookings.VerifyCode(ctx, bookingID, code)
	if err != nil {
		return nil, err
	}
	if !verified {
		// Either the code is wrong/expired, or this is a replay of an
		// already-verified booking. A replay still deserves the payout
		// record back instead of an error.
		if existing, err := s.Payouts.GetByBooking(ctx, bookingID); err == nil {
			return existing, nil
		}
		return nil, ErrInvalidCode
	}

	if s.DropCode != nil {
		if err := s.DropCode(ctx, bookingID); err != nil {
			s.Logger.Warn("Failed to drop cached verification code",
				zap.String("bookingId", bookingID), zap.Error(err))
		}
	}

	return s.release(ctx, booking, ride)
}

// release builds and disburses the payout for a verified booking.
func (s *DefaultPayoutService) release(ctx context.Context, booking *models.Booking, ride *models.Ride) (*models.Payout, error) {
	gross, _, err := s.Payments.SumCompletedByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if gross <= 0 {
		return nil, ErrNothingToDisburse
	}
	fees := CalculateFees(gross, s.TransactionFeeRate, s.CommissionRate)

	driver, err := s.Users.GetByID(ctx, ride.DriverID)
	if err != nil {
		return nil, err
	}
	provider, currency, err := s.disbursementRoute(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	p := &models.Payout{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		RideID:         ride.ID,
		DriverID:       ride.DriverID,
		Amount:         fees.NetAmount,
		OriginalAmount: fees.OriginalAmount,
		TransactionFee: fees.TransactionFee,
		Commission:     fees.Commission,
		Currency:       currency,
		Provider:       provider,
		PhoneNumber:    driver.PhoneNumber,
		Status:         models.PaymentStatusPending,
	}

	created, existing, err := s.Payouts.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent verification already released this booking.
		s.Logger.Info("Payout already exists for booking, not disbursing again",
			zap.String("bookingId", booking.ID), zap.String("payoutId", existing.ID))
		return existing, nil
	}

	s.disburse(ctx, p)
	return s.Payouts.GetByID(ctx, p.ID)
}

// disburse makes the external transfer for a pending payout row. Failures
// only mark the row; the retry machinery picks it up from there.
func (s *DefaultPayoutService) disburse(ctx context.Context, p *models.Payout) {
	gw, err := s.Gateways.For(p.Provider)
	if err != nil {
		s.markFailed(ctx, p, err.Error())
		return
	}

	res, err := gw.Payout(ctx, gateway.PayoutRequest{
		Amount:      p.Amount,
		Currency:    p.Currency,
		PhoneNumber: p.PhoneNumber,
		Reference:   p.ID,
		Description: fmt.Sprintf("Ride earnings for booking %s", p.BookingID),
	})
	if err != nil {
		s.markFailed(ctx, p, err.Error())
		return
	}
	if !res.Success {
		s.markFailed(ctx, p, res.Message)
		return
	}

	if res.TransactionID != "" {
		if err := s.Payouts.SetTransactionID(ctx, p.ID, res.TransactionID); err != nil {
			s.Logger.Error("Failed to store payout transaction id",
				zap.String("payoutId", p.ID), zap.Error(err))
		}
	}
	next := gateway.MapStatus(p.Provider, res.Status)
	if next != models.PaymentStatusCompleted {
		next = models.PaymentStatusProcessing
	}
	if err := s.ApplyPayoutOutcome(ctx, p, next, ""); err != nil {
		s.Logger.Error("Failed to apply payout outcome",
			zap.String("payoutId", p.ID), zap.String("status", next), zap.Error(err))
	}
}

func (s *DefaultPayoutService) markFailed(ctx context.Context, p *models.Payout, reason string) {
	s.Logger.Warn("Payout disbursement failed",
		zap.String("payoutId", p.ID),
		zap.String("bookingId", p.BookingID),
		zap.String("reason", reason))
	if err := s.Payouts.UpdateStatus(ctx, p.ID, models.PaymentStatusFailed, reason); err != nil {
		s.Logger.Error("Failed to mark payout failed", zap.String("payoutId", p.ID), zap.Error(err))
	}
}

// ProcessRetry re-attempts a failed payout. Attempts are capped; once the
// cap is hit the payout is flagged exhausted and the driver is told to
// contact support.
func (s *DefaultPayoutService) ProcessRetry(ctx context.Context, payoutID string) error {
	p, err := s.Payouts.GetByID(ctx, payoutID)
	if err != nil {
		return err
	}
	if p.Status != models.PaymentStatusFailed || p.RetryExhausted {
		return nil
	}
	if p.NextRetryAt != nil && p.NextRetryAt.After(time.Now()) {
		return nil
	}
	if !ShouldRetry(p.FailureReason) {
		return s.exhaust(ctx, p)
	}
	if p.RetryCount >= s.MaxRetries {
		return s.exhaust(ctx, p)
	}

	gw, err := s.Gateways.For(p.Provider)
	if err != nil {
		return err
	}

	// Each attempt gets its own reference so provider-side idempotency on
	// the original (failed) reference cannot swallow the new transfer.
	attemptRef := uuid.New().String()
	res, err := gw.Payout(ctx, gateway.PayoutRequest{
		Amount:      p.Amount,
		Currency:    p.Currency,
		PhoneNumber: p.PhoneNumber,
		Reference:   attemptRef,
		Description: fmt.Sprintf("Ride earnings for booking %s (retry %d)", p.BookingID, p.RetryCount+1),
	})

	attempt := models.RetryAttempt{At: time.Now(), TransactionID: attemptRef}
	switch {
	case err != nil:
		attempt.Status = models.PaymentStatusFailed
		attempt.Reason = err.Error()
	case !res.Success:
		attempt.Status = models.PaymentStatusFailed
		attempt.Reason = res.Message
	default:
		attempt.Status = models.PaymentStatusProcessing
	}

	var nextRetryAt *time.Time
	if attempt.Status == models.PaymentStatusFailed {
		// Cooldown doubles with every attempt already made.
		t := time.Now().Add(s.RetryBackoff << uint(p.RetryCount))
		nextRetryAt = &t
	}
	if err := s.Payouts.RecordRetryAttempt(ctx, p.ID, attempt, nextRetryAt); err != nil {
		return err
	}
	if attempt.Status == models.PaymentStatusFailed {
		if err := s.Payouts.UpdateStatus(ctx, p.ID, models.PaymentStatusFailed, attempt.Reason); err != nil {
			return err
		}
		if p.RetryCount+1 >= s.MaxRetries || !ShouldRetry(attempt.Reason) {
			refreshed, err := s.Payouts.GetByID(ctx, p.ID)
			if err != nil {
				return err
			}
			return s.exhaust(ctx, refreshed)
		}
		return nil
	}

	if res.TransactionID != "" {
		if err := s.Payouts.SetTransactionID(ctx, p.ID, res.TransactionID); err != nil {
			s.Logger.Error("Failed to store payout transaction id",
				zap.String("payoutId", p.ID), zap.Error(err))
		}
	}
	next := gateway.MapStatus(p.Provider, res.Status)
	if next != models.PaymentStatusCompleted {
		next = models.PaymentStatusProcessing
	}
	return s.ApplyPayoutOutcome(ctx, p, next, "")
}

// exhaust flags the payout for manual follow-up and tells the driver.
func (s *DefaultPayoutService) exhaust(ctx context.Context, p *models.Payout) error {
	if err := s.Payouts.MarkRetryExhausted(ctx, p.ID); err != nil {
		return err
	}
	s.Logger.Error("Payout retries exhausted",
		zap.String("payoutId", p.ID),
		zap.String("bookingId", p.BookingID),
		zap.Int("attempts", p.RetryCount),
		zap.String("lastReason", p.FailureReason))
	if err := s.Notification.SendDriverPushNotification(ctx, p.DriverID,
		"Payout needs attention",
		"We could not transfer your earnings automatically. Support will contact you shortly.",
		map[string]string{"type": "payout_exhausted", "payoutId": p.ID}); err != nil {
		s.Logger.Warn("Push notification failed", zap.String("driverId", p.DriverID), zap.Error(err))
	}
	return nil
}

// ApplyPayoutOutcome persists a provider-reported payout status and notifies
// the driver on completion.
func (s *DefaultPayoutService) ApplyPayoutOutcome(ctx context.Context, p *models.Payout, status, failureReason string) error {
	if p.Status == status {
		return nil
	}
	if err := s.Payouts.UpdateStatus(ctx, p.ID, status, failureReason); err != nil {
		return err
	}
	if status == models.PaymentStatusCompleted {
		// The ride is done for this booking once the earnings land.
		if err := s.Bookings.SetStatus(ctx, p.BookingID, models.BookingStatusCompleted); err != nil {
			s.Logger.Error("Failed to complete booking after disbursement",
				zap.String("bookingId", p.BookingID), zap.Error(err))
		}
		if err := s.Notification.SendDriverPushNotification(ctx, p.DriverID,
			"Earnings transferred",
			fmt.Sprintf("%.0f %s has been sent to your mobile money account.", p.Amount, p.Currency),
			map[string]string{"type": "payout_completed", "payoutId": p.ID}); err != nil {
			s.Logger.Warn("Push notification failed", zap.String("driverId", p.DriverID), zap.Error(err))
		}
	}
	return nil
}

// disbursementRoute reuses the provider and currency the rider paid with:
// that is where the collected funds sit.
func (s *DefaultPayoutService) disbursementRoute(ctx context.Context, bookingID string) (provider, currency string, err error) {
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return "", "", err
	}
	var latest *models.Payment
	for i := range payments {
		if payments[i].Status != models.PaymentStatusCompleted {
			continue
		}
		if latest == nil || payments[i].CreatedAt.After(latest.CreatedAt) {
			latest = &payments[i]
		}
	}
	if latest == nil {
		return "", "", ErrNothingToDisburse
	}
	return latest.Provider, latest.Currency, nil
}
