package refund

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

// fakeGateway scripts refund results per call.
type fakeGateway struct {
	provider    string
	refundCalls int
	lastRequest gateway.RefundRequest
	refundErr   error
	result      *gateway.Result
}

func (g *fakeGateway) Provider() string { return g.provider }

func (g *fakeGateway) Payin(context.Context, gateway.PayinRequest) (*gateway.Result, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) Payout(context.Context, gateway.PayoutRequest) (*gateway.Result, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.Result, error) {
	g.refundCalls++
	g.lastRequest = req
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return g.result, nil
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
	svc      *DefaultRefundService
	rides    *repotest.RideRepo
	bookings *repotest.BookingRepo
	payments *repotest.PaymentRepo
	refunds  *repotest.RefundRepo
	gw       *fakeGateway
}

func newFixture() *fixture {
	rides := repotest.NewRideRepo()
	refunds := repotest.NewRefundRepo()
	bookings := repotest.NewBookingRepo(rides, refunds)
	payments := repotest.NewPaymentRepo()
	gw := &fakeGateway{
		provider: models.ProviderMTN,
		result:   &gateway.Result{Success: true, TransactionID: "txn-ref-1", Status: "PENDING"},
	}

	svc := &DefaultRefundService{
		Bookings:     bookings,
		Rides:        rides,
		Payments:     &payment.DefaultPaymentService{Repo: payments, Logger: zap.NewNop()},
		Refunds:      refunds,
		Gateways:     gateway.NewRegistry(gw),
		Notification: silentNotifier{},
		Logger:       zap.NewNop(),
	}
	return &fixture{svc: svc, rides: rides, bookings: bookings, payments: payments, refunds: refunds, gw: gw}
}

// seedPaidBooking sets up a 3-seat booking at 1000 XAF/seat, fully paid with
// one completed payment. Two seats of the ride remain free.
func (f *fixture) seedPaidBooking() *models.Booking {
	f.rides.Seed(&models.Ride{
		ID:             "ride-1",
		DriverID:       "driver-1",
		PricePerSeat:   1000,
		Currency:       "XAF",
		SeatsAvailable: 2,
		Status:         models.RideStatusActive,
		DepartureTime:  time.Now().Add(3 * time.Hour),
	})
	b := &models.Booking{
		ID:            "booking-1",
		RideID:        "ride-1",
		UserID:        "rider-1",
		Seats:         3,
		Status:        models.BookingStatusPendingVerification,
		PaymentStatus: models.BookingPaymentCompleted,
	}
	f.bookings.Seed(b)
	f.payments.Seed(&models.Payment{
		ID:             "payment-1",
		BookingID:      "booking-1",
		Amount:         3000,
		Currency:       "XAF",
		Provider:       models.ProviderMTN,
		PhoneNumber:    "237670000001",
		TransactionID:  "txn-in-1",
		Status:         models.PaymentStatusCompleted,
		IdempotencyKey: "key-1",
	})
	return b
}

func (f *fixture) singleRefund(t *testing.T) models.Refund {
	t.Helper()
	all := f.refunds.All()
	if len(all) != 1 {
		t.Fatalf("refund count = %d, want 1", len(all))
	}
	return all[0]
}

func TestCancelWithRefundHappyPath(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	if err := f.svc.CancelWithRefund(ctx, "booking-1", "rider-1"); err != nil {
		t.Fatalf("CancelWithRefund failed: %v", err)
	}

	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("booking status = %s, want cancelled", booking.Status)
	}
	if got := f.rides.SeatsAvailable("ride-1"); got != 5 {
		t.Errorf("seats_available = %d, want 5 after restore", got)
	}

	refund := f.singleRefund(t)
	if refund.Type != models.RefundTypeFull {
		t.Errorf("refund type = %s, want full", refund.Type)
	}
	if refund.Amount != 3000 {
		t.Errorf("refund amount = %.0f, want 3000", refund.Amount)
	}
	if refund.Status != models.PaymentStatusProcessing {
		t.Errorf("refund status = %s, want processing", refund.Status)
	}
	if refund.TransactionID != "txn-ref-1" {
		t.Errorf("refund transaction id = %s, want txn-ref-1", refund.TransactionID)
	}
	// The reversal targets the original collection.
	if f.gw.lastRequest.TransactionID != "txn-in-1" {
		t.Errorf("refund request transaction id = %s, want txn-in-1", f.gw.lastRequest.TransactionID)
	}
}

func TestCancelWithRefundRejectsUnpaidBooking(t *testing.T) {
	f := newFixture()
	b := f.seedPaidBooking()
	ctx := context.Background()
	_ = f.payments.UpdateStatus(ctx, "payment-1", models.PaymentStatusFailed, nil, nil)
	_ = f.bookings.SetPaymentOutcome(ctx, b.ID, models.BookingPaymentFailed, models.BookingStatusPending)

	err := f.svc.CancelWithRefund(ctx, "booking-1", "rider-1")
	if !errors.Is(err, ErrNothingToRefund) {
		t.Fatalf("expected ErrNothingToRefund, got %v", err)
	}
	if f.gw.refundCalls != 0 {
		t.Error("no provider call may happen without completed payments")
	}
}

func TestCancelWithRefundKeepsCancellationWhenProviderFails(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	f.gw.result = &gateway.Result{Success: false, Message: "service unavailable"}
	ctx := context.Background()

	if err := f.svc.CancelWithRefund(ctx, "booking-1", "rider-1"); err != nil {
		t.Fatalf("CancelWithRefund failed: %v", err)
	}

	// The money move failed but the cancellation already committed.
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("booking status = %s, want cancelled despite provider failure", booking.Status)
	}
	refund := f.singleRefund(t)
	if refund.Status != models.PaymentStatusFailed {
		t.Errorf("refund status = %s, want failed", refund.Status)
	}
	if refund.FailureReason != "service unavailable" {
		t.Errorf("failure reason = %q", refund.FailureReason)
	}
}

func TestCancelWithRefundSyncCompletionMarksPaymentsRefunded(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	f.gw.result = &gateway.Result{Success: true, TransactionID: "txn-ref-1", Status: "SUCCESSFUL"}
	ctx := context.Background()

	if err := f.svc.CancelWithRefund(ctx, "booking-1", "rider-1"); err != nil {
		t.Fatalf("CancelWithRefund failed: %v", err)
	}
	refund := f.singleRefund(t)
	if refund.Status != models.PaymentStatusCompleted {
		t.Errorf("refund status = %s, want completed", refund.Status)
	}
	p, _ := f.payments.GetByID(ctx, "payment-1")
	if p.Status != models.PaymentStatusRefunded {
		t.Errorf("payment status = %s, want refunded", p.Status)
	}
}

func TestReduceSeatsWithRefund(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	refund, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "rider-1", 1)
	if err != nil {
		t.Fatalf("ReduceSeatsWithRefund failed: %v", err)
	}
	if refund.Type != models.RefundTypePartial {
		t.Errorf("refund type = %s, want partial", refund.Type)
	}
	if refund.Amount != 2000 {
		t.Errorf("refund amount = %.0f, want 2000 for two released seats", refund.Amount)
	}
	if refund.Status != models.PaymentStatusProcessing {
		t.Errorf("refund status = %s, want processing", refund.Status)
	}

	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Seats != 1 {
		t.Errorf("seats = %d, want 1", booking.Seats)
	}
	if got := f.rides.SeatsAvailable("ride-1"); got != 4 {
		t.Errorf("seats_available = %d, want 4 after releasing two", got)
	}
}

func TestReduceSeatsWithRefundCapsAtCollectedAmount(t *testing.T) {
	f := newFixture()
	b := f.seedPaidBooking()
	ctx := context.Background()
	// Only 2500 of the 3000 XAF was ever collected.
	f.payments.Seed(&models.Payment{
		ID:             "payment-1",
		BookingID:      "booking-1",
		Amount:         2500,
		Currency:       "XAF",
		Provider:       models.ProviderMTN,
		PhoneNumber:    "237670000001",
		TransactionID:  "txn-in-1",
		Status:         models.PaymentStatusCompleted,
		IdempotencyKey: "key-1",
	})
	_ = f.bookings.SetPaymentOutcome(ctx, b.ID, models.BookingPaymentPartial, models.BookingStatusPendingVerification)

	// The two freed seats are worth 2000, but after keeping 1000 for the
	// remaining seat only 1500 of collected money can go back.
	refund, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "rider-1", 1)
	if err != nil {
		t.Fatalf("ReduceSeatsWithRefund failed: %v", err)
	}
	if refund.Amount != 1500 {
		t.Errorf("refund amount = %.0f, want 1500 capped at collected money", refund.Amount)
	}
}

func TestReduceSeatsWithRefundRejectsWhenNothingCollectedForFreedSeats(t *testing.T) {
	f := newFixture()
	b := f.seedPaidBooking()
	ctx := context.Background()
	// Collected 1000 of 3000; the remaining seat alone is worth that much.
	f.payments.Seed(&models.Payment{
		ID:             "payment-1",
		BookingID:      "booking-1",
		Amount:         1000,
		Currency:       "XAF",
		Provider:       models.ProviderMTN,
		PhoneNumber:    "237670000001",
		TransactionID:  "txn-in-1",
		Status:         models.PaymentStatusCompleted,
		IdempotencyKey: "key-1",
	})
	_ = f.bookings.SetPaymentOutcome(ctx, b.ID, models.BookingPaymentPartial, models.BookingStatusPendingVerification)

	_, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "rider-1", 1)
	if !errors.Is(err, ErrNothingToRefund) {
		t.Fatalf("expected ErrNothingToRefund, got %v", err)
	}
	if f.gw.refundCalls != 0 {
		t.Error("no money may go out beyond what was collected")
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Seats != 3 {
		t.Errorf("seats = %d, a rejected reduction must leave the booking untouched", booking.Seats)
	}
	if got := f.rides.SeatsAvailable("ride-1"); got != 2 {
		t.Errorf("seats_available = %d, want 2 unchanged", got)
	}
}

func TestCancelWithRefundWorksAfterRideCancelled(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()
	if err := f.rides.UpdateStatus(ctx, "ride-1", models.RideStatusCancelled); err != nil {
		t.Fatalf("cancel ride: %v", err)
	}

	// The driver pulled the ride; the paid rider still gets their money back.
	if err := f.svc.CancelWithRefund(ctx, "booking-1", "rider-1"); err != nil {
		t.Fatalf("CancelWithRefund failed on a cancelled ride: %v", err)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("booking status = %s, want cancelled", booking.Status)
	}
	refund := f.singleRefund(t)
	if refund.Amount != 3000 {
		t.Errorf("refund amount = %.0f, want 3000", refund.Amount)
	}
	if refund.Status != models.PaymentStatusProcessing {
		t.Errorf("refund status = %s, want processing", refund.Status)
	}
}

func TestReduceSeatsWithRefundValidation(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	if _, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "impostor", 1); !errors.Is(err, ErrNotBookingOwner) {
		t.Errorf("wrong owner: got %v, want ErrNotBookingOwner", err)
	}
	if _, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "rider-1", 0); !errors.Is(err, ErrInvalidSeatCount) {
		t.Errorf("zero seats: got %v, want ErrInvalidSeatCount", err)
	}
	if _, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "rider-1", 3); !errors.Is(err, ErrInvalidSeatCount) {
		t.Errorf("same seats: got %v, want ErrInvalidSeatCount", err)
	}
	if _, err := f.svc.ReduceSeatsWithRefund(ctx, "booking-1", "rider-1", 5); !errors.Is(err, ErrInvalidSeatCount) {
		t.Errorf("more seats: got %v, want ErrInvalidSeatCount", err)
	}
	if f.gw.refundCalls != 0 {
		t.Error("validation failures must not reach the provider")
	}
}

func TestApplyRefundOutcomePartialRestoresPaymentStatus(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	refund := &models.Refund{
		ID:        "refund-1",
		BookingID: "booking-1",
		UserID:    "rider-1",
		Type:      models.RefundTypePartial,
		Amount:    1000,
		Currency:  "XAF",
		Provider:  models.ProviderMTN,
		Status:    models.PaymentStatusProcessing,
	}
	f.refunds.Seed(refund)

	if err := f.svc.ApplyRefundOutcome(ctx, refund, models.PaymentStatusCompleted, ""); err != nil {
		t.Fatalf("ApplyRefundOutcome failed: %v", err)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.PaymentStatus != models.BookingPaymentPartialRefund {
		t.Errorf("payment_status = %s, want partial_refund", booking.PaymentStatus)
	}
}

func TestApplyRefundOutcomePartialSkipsUnrestorableBooking(t *testing.T) {
	f := newFixture()
	b := f.seedPaidBooking()
	ctx := context.Background()
	_ = f.bookings.SetPaymentOutcome(ctx, b.ID, models.BookingPaymentFailed, models.BookingStatusCancelled)

	refund := &models.Refund{
		ID:        "refund-1",
		BookingID: "booking-1",
		UserID:    "rider-1",
		Type:      models.RefundTypePartial,
		Status:    models.PaymentStatusProcessing,
	}
	f.refunds.Seed(refund)

	if err := f.svc.ApplyRefundOutcome(ctx, refund, models.PaymentStatusCompleted, ""); err != nil {
		t.Fatalf("ApplyRefundOutcome failed: %v", err)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.PaymentStatus != models.BookingPaymentFailed {
		t.Errorf("payment_status = %s, a late refund report must not overwrite it", booking.PaymentStatus)
	}
}

func TestApplyRefundOutcomeSameStatusIsNoop(t *testing.T) {
	f := newFixture()
	f.seedPaidBooking()
	ctx := context.Background()

	refund := &models.Refund{
		ID:         "refund-1",
		BookingID:  "booking-1",
		UserID:     "rider-1",
		Type:       models.RefundTypeFull,
		PaymentIDs: []string{"payment-1"},
		Status:     models.PaymentStatusCompleted,
	}
	f.refunds.Seed(refund)

	if err := f.svc.ApplyRefundOutcome(ctx, refund, models.PaymentStatusCompleted, ""); err != nil {
		t.Fatalf("ApplyRefundOutcome failed: %v", err)
	}
	// The payment must not be touched again on a redelivered report.
	p, _ := f.payments.GetByID(ctx, "payment-1")
	if p.Status != models.PaymentStatusCompleted {
		t.Errorf("payment status = %s, redelivery must not re-settle", p.Status)
	}
}
