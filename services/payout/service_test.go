package payout

import (
	"context"
	"errors"
	"testing"
	"time"

	"rideka/database/repository/repotest"
	"rideka/models"
	"rideka/services/gateway"
	"rideka/services/payment"

	"go.uber.org/zap"
)

// fakeGateway scripts payout results per call.
type fakeGateway struct {
	provider    string
	payoutCalls int
	payoutErr   error
	result      *gateway.Result
}

func (g *fakeGateway) Provider() string { return g.provider }

func (g *fakeGateway) Payin(context.Context, gateway.PayinRequest) (*gateway.Result, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) Payout(context.Context, gateway.PayoutRequest) (*gateway.Result, error) {
	g.payoutCalls++
	if g.payoutErr != nil {
		return nil, g.payoutErr
	}
	return g.result, nil
}

func (g *fakeGateway) Refund(context.Context, gateway.RefundRequest) (*gateway.Result, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) CheckPayment(context.Context, string) (*gateway.Result, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) CheckPayoutStatus(context.Context, string) (*gateway.Result, error) {
	return nil, errors.New("not used")
}

type silentNotifier struct{}

func (silentNotifier) SendRiderPushNotification(context.Context, string, string, string, map[string]string) error {
	return nil
}

func (silentNotifier) SendDriverPushNotification(context.Context, string, string, string, map[string]string) error {
	return nil
}

type fixture struct {
	svc      *DefaultPayoutService
	rides    *repotest.RideRepo
	bookings *repotest.BookingRepo
	payments *repotest.PaymentRepo
	payouts  *repotest.PayoutRepo
	gw       *fakeGateway
}

func newFixture() *fixture {
	rides := repotest.NewRideRepo()
	bookings := repotest.NewBookingRepo(rides, repotest.NewRefundRepo())
	payments := repotest.NewPaymentRepo()
	payouts := repotest.NewPayoutRepo()
	users := repotest.NewUserRepo()
	gw := &fakeGateway{
		provider: models.ProviderMTN,
		result:   &gateway.Result{Success: true, TransactionID: "txn-out-1", Status: "PENDING"},
	}

	users.Seed(&models.User{ID: "driver-1", PhoneNumber: "237670000009"})

	svc := &DefaultPayoutService{
		Bookings:           bookings,
		Rides:              rides,
		Users:              users,
		Payments:           &payment.DefaultPaymentService{Repo: payments, Logger: zap.NewNop()},
		Payouts:            payouts,
		Gateways:           gateway.NewRegistry(gw),
		Notification:       silentNotifier{},
		Logger:             zap.NewNop(),
		TransactionFeeRate: 0.02,
		CommissionRate:     0.10,
		MaxRetries:         3,
		RetryBackoff:       10 * time.Minute,
	}
	return &fixture{svc: svc, rides: rides, bookings: bookings, payments: payments, payouts: payouts, gw: gw}
}

func (f *fixture) seedPaidBooking() *models.Booking {
	f.rides.Seed(&models.Ride{
		ID:             "ride-1",
		DriverID:       "driver-1",
		PricePerSeat:   5000,
		Currency:       "XAF",
		SeatsAvailable: 2,
		Status:         models.RideStatusActive,
		DepartureTime:  time.Now().Add(time.Hour),
	})
	b := &models.Booking{
		ID:               "booking-1",
		RideID:           "ride-1",
		UserID:           "rider-1",
		Seats:            2,
		Status:           models.BookingStatusPendingVerification,
		PaymentStatus:    models.BookingPaymentCompleted,
		VerificationCode: "654321",
		CodeExpiresAt:    time.Now().Add(time.Hour),
	}
	f.bookings.Seed(b)
	f.payments.Seed(&models.Payment{
		ID:             "payment-1",
		BookingID:      "booking-1",
		Amount:         10000,
		Currency:       "XAF",
		Provider:       models.ProviderMTN,
		Status:         models.PaymentStatusCompleted,
		IdempotencyKey: "key-1",
	})
	return b
}

func TestVerifyAndReleaseHappyPath(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	p, err := f.svc.VerifyAndRelease(ctx, "booking-1", "driver-1", "654321")
	if err != nil {
		t.Fatalf("VerifyAndRelease failed: %v", err)
	}
	if p.OriginalAmount != 10000 {
		t.Errorf("original = %.0f, want 10000", p.OriginalAmount)
	}
	if p.Amount != 8800 {
		t.Errorf("net = %.0f, want 8800 after 2%% fee and 10%% commission", p.Amount)
	}
	if p.Status != models.PaymentStatusProcessing {
		t.Errorf("status = %s, want processing", p.Status)
	}
	if p.TransactionID != "txn-out-1" {
		t.Errorf("transaction id = %s, want txn-out-1", p.TransactionID)
	}
	if f.gw.payoutCalls != 1 {
		t.Errorf("payout calls = %d, want 1", f.gw.payoutCalls)
	}

	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if !booking.CodeVerified {
		t.Error("booking must be marked verified")
	}
	if booking.Status != models.BookingStatusConfirmed {
		t.Errorf("booking status = %s, want confirmed", booking.Status)
	}
}

func TestVerifyAndReleaseRejectsWrongDriver(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()

	_, err := f.svc.VerifyAndRelease(context.Background(), "booking-1", "impostor", "654321")
	if !errors.Is(err, ErrNotRideDriver) {
		t.Fatalf("expected ErrNotRideDriver, got %v", err)
	}
	if f.gw.payoutCalls != 0 {
		t.Error("no disbursement may happen for the wrong driver")
	}
}

func TestVerifyAndReleaseRejectsWrongCode(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()

	_, err := f.svc.VerifyAndRelease(context.Background(), "booking-1", "driver-1", "000000")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if f.gw.payoutCalls != 0 {
		t.Error("no disbursement may happen on a wrong code")
	}
}

func TestVerifyAndReleaseRejectsUnpaidBooking(t *testing.T) {
	f := newFixture()
	b := f.seedPaidBooking()
	_ = f.bookings.SetPaymentOutcome(context.Background(), b.ID, models.BookingPaymentPending, models.BookingStatusPending)

	_, err := f.svc.VerifyAndRelease(context.Background(), "booking-1", "driver-1", "654321")
	if !errors.Is(err, ErrBookingNotPaid) {
		t.Fatalf("expected ErrBookingNotPaid, got %v", err)
	}
}

func TestVerifyAndReleaseReplayReturnsExistingPayout(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	first, err := f.svc.VerifyAndRelease(ctx, "booking-1", "driver-1", "654321")
	if err != nil {
		t.Fatalf("first release failed: %v", err)
	}
	// The code is now used up; a replay must not disburse again.
	second, err := f.svc.VerifyAndRelease(ctx, "booking-1", "driver-1", "654321")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay created a second payout: %s vs %s", second.ID, first.ID)
	}
	if f.gw.payoutCalls != 1 {
		t.Errorf("payout calls = %d, want exactly 1", f.gw.payoutCalls)
	}
}

func TestDisbursementFailureMarksPayoutFailed(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	f.gw.result = &gateway.Result{Success: false, Message: "service unavailable"}

	p, err := f.svc.VerifyAndRelease(context.Background(), "booking-1", "driver-1", "654321")
	if err != nil {
		t.Fatalf("VerifyAndRelease failed: %v", err)
	}
	if p.Status != models.PaymentStatusFailed {
		t.Errorf("status = %s, want failed", p.Status)
	}
	if p.FailureReason != "service unavailable" {
		t.Errorf("failure reason = %q", p.FailureReason)
	}
}

func TestProcessRetrySucceedsOnSecondAttempt(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	f.payouts.Seed(&models.Payout{
		ID:            "payout-1",
		BookingID:     "booking-1",
		DriverID:      "driver-1",
		Amount:        8800,
		Currency:      "XAF",
		Provider:      models.ProviderMTN,
		PhoneNumber:   "237670000009",
		Status:        models.PaymentStatusFailed,
		FailureReason: "timeout",
		RetryCount:    1,
	})

	f.gw.result = &gateway.Result{Success: true, TransactionID: "txn-out-2", Status: "SUCCESSFUL"}
	if err := f.svc.ProcessRetry(ctx, "payout-1"); err != nil {
		t.Fatalf("ProcessRetry failed: %v", err)
	}
	if f.gw.payoutCalls != 1 {
		t.Errorf("payout calls = %d, want 1", f.gw.payoutCalls)
	}
	got, _ := f.payouts.GetByID(ctx, "payout-1")
	if got.Status != models.PaymentStatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.TransactionID != "txn-out-2" {
		t.Errorf("transaction id = %s, want txn-out-2", got.TransactionID)
	}
	if got.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", got.RetryCount)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Status != models.BookingStatusCompleted {
		t.Errorf("booking status = %s, want completed after the earnings land", booking.Status)
	}
}

func TestProcessRetryExhaustsAfterFinalFailedAttempt(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	f.payouts.Seed(&models.Payout{
		ID:            "payout-1",
		BookingID:     "booking-1",
		DriverID:      "driver-1",
		Amount:        8800,
		Currency:      "XAF",
		Provider:      models.ProviderMTN,
		PhoneNumber:   "237670000009",
		Status:        models.PaymentStatusFailed,
		FailureReason: "timeout",
		RetryCount:    2,
	})
	f.gw.result = &gateway.Result{Success: false, Message: "timeout"}

	if err := f.svc.ProcessRetry(ctx, "payout-1"); err != nil {
		t.Fatalf("ProcessRetry failed: %v", err)
	}
	got, _ := f.payouts.GetByID(ctx, "payout-1")
	if got.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", got.RetryCount)
	}
	if !got.RetryExhausted {
		t.Error("third failed attempt must exhaust the payout")
	}

	// The sweep may still enqueue it once more; that must be a no-op.
	if err := f.svc.ProcessRetry(ctx, "payout-1"); err != nil {
		t.Fatalf("post-exhaustion retry failed: %v", err)
	}
	if f.gw.payoutCalls != 1 {
		t.Errorf("payout calls = %d, want 1", f.gw.payoutCalls)
	}
}

func TestProcessRetryStopsAtMaxRetries(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	f.payouts.Seed(&models.Payout{
		ID:            "payout-1",
		BookingID:     "booking-1",
		DriverID:      "driver-1",
		Amount:        8800,
		Currency:      "XAF",
		Provider:      models.ProviderMTN,
		PhoneNumber:   "237670000009",
		Status:        models.PaymentStatusFailed,
		FailureReason: "timeout",
		RetryCount:    3,
	})

	if err := f.svc.ProcessRetry(ctx, "payout-1"); err != nil {
		t.Fatalf("ProcessRetry failed: %v", err)
	}
	if f.gw.payoutCalls != 0 {
		t.Errorf("payout calls = %d, a fourth attempt must never happen", f.gw.payoutCalls)
	}
	got, _ := f.payouts.GetByID(ctx, "payout-1")
	if !got.RetryExhausted {
		t.Error("payout must be marked retry_exhausted at the cap")
	}
}

func TestProcessRetrySkipsPermanentFailures(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	f.payouts.Seed(&models.Payout{
		ID:            "payout-1",
		BookingID:     "booking-1",
		DriverID:      "driver-1",
		Status:        models.PaymentStatusFailed,
		Provider:      models.ProviderMTN,
		FailureReason: "payee not found",
	})
	if err := f.svc.ProcessRetry(ctx, "payout-1"); err != nil {
		t.Fatalf("ProcessRetry failed: %v", err)
	}
	if f.gw.payoutCalls != 0 {
		t.Error("permanent failures must not be retried")
	}
	got, _ := f.payouts.GetByID(ctx, "payout-1")
	if !got.RetryExhausted {
		t.Error("permanent failure must be flagged for manual follow-up")
	}
}

func TestProcessRetryRespectsCooldown(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	next := time.Now().Add(5 * time.Minute)
	f.payouts.Seed(&models.Payout{
		ID:            "payout-1",
		BookingID:     "booking-1",
		DriverID:      "driver-1",
		Status:        models.PaymentStatusFailed,
		Provider:      models.ProviderMTN,
		FailureReason: "timeout",
		NextRetryAt:   &next,
	})
	if err := f.svc.ProcessRetry(ctx, "payout-1"); err != nil {
		t.Fatalf("ProcessRetry failed: %v", err)
	}
	if f.gw.payoutCalls != 0 {
		t.Error("retry before cooldown must be a no-op")
	}
}
