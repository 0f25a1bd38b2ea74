package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rideka/database/repository/repotest"
	"rideka/models"
	"rideka/services/payment"

	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu     sync.Mutex
	rider  []string
	driver []string
	err    error
}

func (n *recordingNotifier) SendRiderPushNotification(_ context.Context, userID, title, _ string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rider = append(n.rider, userID+":"+title)
	return n.err
}

func (n *recordingNotifier) SendDriverPushNotification(_ context.Context, driverID, title, _ string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.driver = append(n.driver, driverID+":"+title)
	return n.err
}

type fixture struct {
	orch     *DefaultOrchestrator
	rides    *repotest.RideRepo
	bookings *repotest.BookingRepo
	payments *repotest.PaymentRepo
	receipts *repotest.ReceiptRepo
	notifier *recordingNotifier
}

func newFixture() *fixture {
	rides := repotest.NewRideRepo()
	refunds := repotest.NewRefundRepo()
	bookings := repotest.NewBookingRepo(rides, refunds)
	payments := repotest.NewPaymentRepo()
	receipts := repotest.NewReceiptRepo()
	notifier := &recordingNotifier{}

	svc := &payment.DefaultPaymentService{Repo: payments, Logger: zap.NewNop()}
	orch := &DefaultOrchestrator{
		Payments:     svc,
		Bookings:     bookings,
		Rides:        rides,
		Receipts:     receipts,
		Notification: notifier,
		Logger:       zap.NewNop(),
		CodeTTL:      24 * time.Hour,
	}
	return &fixture{orch: orch, rides: rides, bookings: bookings, payments: payments, receipts: receipts, notifier: notifier}
}

func (f *fixture) seedRide() *models.Ride {
	ride := &models.Ride{
		ID:             "ride-1",
		DriverID:       "driver-1",
		PricePerSeat:   1000,
		Currency:       "XAF",
		SeatsAvailable: 4,
		Status:         models.RideStatusActive,
		DepartureTime:  time.Now().Add(2 * time.Hour),
	}
	f.rides.Seed(ride)
	return ride
}

func (f *fixture) seedBooking(seats int) *models.Booking {
	b := &models.Booking{
		ID:            "booking-1",
		RideID:        "ride-1",
		UserID:        "rider-1",
		Seats:         seats,
		Status:        models.BookingStatusPending,
		PaymentStatus: models.BookingPaymentPending,
	}
	f.bookings.Seed(b)
	return b
}

func (f *fixture) seedPayment(amount float64, status string) *models.Payment {
	p := &models.Payment{
		ID:             "payment-1",
		BookingID:      "booking-1",
		Amount:         amount,
		Currency:       "XAF",
		Provider:       models.ProviderMTN,
		IdempotencyKey: "key-1",
		Status:         status,
	}
	f.payments.Seed(p)
	return p
}

func TestHandleStatusChangeCompletedPromotesBooking(t *testing.T) {
	f := newFixture()
	f.seedRide()
	f.seedBooking(2)
	p := f.seedPayment(2000, models.PaymentStatusProcessing)
	ctx := context.Background()

	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("HandleStatusChange failed: %v", err)
	}

	booking, err := f.bookings.GetByID(ctx, "booking-1")
	if err != nil {
		t.Fatalf("booking lookup failed: %v", err)
	}
	if booking.PaymentStatus != models.BookingPaymentCompleted {
		t.Errorf("payment_status = %s, want completed", booking.PaymentStatus)
	}
	if booking.Status != models.BookingStatusPendingVerification {
		t.Errorf("status = %s, want pending_verification", booking.Status)
	}
	if booking.VerificationCode == "" {
		t.Error("expected a verification code to be issued")
	}
	if len(booking.VerificationCode) != 6 {
		t.Errorf("verification code length = %d, want 6", len(booking.VerificationCode))
	}
	if f.receipts.Count() != 1 {
		t.Errorf("receipt count = %d, want 1", f.receipts.Count())
	}
}

func TestHandleStatusChangePartialPayment(t *testing.T) {
	f := newFixture()
	f.seedRide()
	f.seedBooking(3) // owes 3000
	p := f.seedPayment(1000, models.PaymentStatusProcessing)
	ctx := context.Background()

	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("HandleStatusChange failed: %v", err)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.PaymentStatus != models.BookingPaymentPartial {
		t.Errorf("payment_status = %s, want partial", booking.PaymentStatus)
	}
}

func TestHandleStatusChangeRedeliveryIsNoop(t *testing.T) {
	f := newFixture()
	f.seedRide()
	f.seedBooking(2)
	p := f.seedPayment(2000, models.PaymentStatusProcessing)
	ctx := context.Background()

	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	receiptsAfterFirst := f.receipts.Count()
	bookingAfterFirst, _ := f.bookings.GetByID(ctx, "booking-1")

	// Same webhook delivered again, with the payment now completed.
	redelivered, _ := f.payments.GetByID(ctx, p.ID)
	if err := f.orch.HandleStatusChange(ctx, redelivered, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}

	if f.receipts.Count() != receiptsAfterFirst {
		t.Error("redelivery created another receipt")
	}
	bookingAfterSecond, _ := f.bookings.GetByID(ctx, "booking-1")
	if bookingAfterSecond.VerificationCode != bookingAfterFirst.VerificationCode {
		t.Error("redelivery rotated the verification code")
	}
}

func TestHandleStatusChangeBridgesPendingToCompleted(t *testing.T) {
	f := newFixture()
	f.seedRide()
	f.seedBooking(2)
	p := f.seedPayment(2000, models.PaymentStatusPending)
	ctx := context.Background()

	// The provider's success report raced ahead of the initiation write.
	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("HandleStatusChange failed: %v", err)
	}
	got, _ := f.payments.GetByID(ctx, p.ID)
	if got.Status != models.PaymentStatusCompleted {
		t.Errorf("payment status = %s, want completed", got.Status)
	}
}

func TestHandleStatusChangeMissingBookingAbortsSilently(t *testing.T) {
	f := newFixture()
	f.seedRide()
	p := f.seedPayment(2000, models.PaymentStatusProcessing)
	ctx := context.Background()

	// No booking row yet: the payment raced ahead of the booking insert.
	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("expected silent abort, got: %v", err)
	}
	got, _ := f.payments.GetByID(ctx, p.ID)
	if got.Status != models.PaymentStatusCompleted {
		t.Errorf("payment status = %s, want completed despite missing booking", got.Status)
	}
	if f.receipts.Count() != 0 {
		t.Error("no receipt should exist before the booking does")
	}
}

func TestHandleStatusChangeFailedCancelsAndRestoresSeats(t *testing.T) {
	f := newFixture()
	ride := f.seedRide()
	f.seedBooking(2)
	// Simulate the two seats being held by the booking.
	f.rides.Seed(&models.Ride{
		ID: ride.ID, DriverID: ride.DriverID, PricePerSeat: ride.PricePerSeat,
		Currency: ride.Currency, SeatsAvailable: 2, Status: models.RideStatusActive,
		DepartureTime: ride.DepartureTime,
	})
	p := f.seedPayment(2000, models.PaymentStatusProcessing)
	ctx := context.Background()

	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusFailed, nil); err != nil {
		t.Fatalf("HandleStatusChange failed: %v", err)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.Status != models.BookingStatusCancelled {
		t.Errorf("booking status = %s, want cancelled", booking.Status)
	}
	if booking.PaymentStatus != models.BookingPaymentFailed {
		t.Errorf("payment_status = %s, want failed", booking.PaymentStatus)
	}
	if got := f.rides.SeatsAvailable(ride.ID); got != 4 {
		t.Errorf("seats_available = %d, want 4 after restore", got)
	}
}

func TestHandleStatusChangeRejectsIllegalTransition(t *testing.T) {
	f := newFixture()
	f.seedRide()
	f.seedBooking(2)
	p := f.seedPayment(2000, models.PaymentStatusFailed)
	ctx := context.Background()

	err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil)
	var invalid *payment.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestReconcileCompletedPaymentRunsExactlyOnce(t *testing.T) {
	f := newFixture()
	f.seedRide()
	booking := f.seedBooking(2)
	p := f.seedPayment(2000, models.PaymentStatusCompleted)
	ctx := context.Background()

	if err := f.orch.ReconcileCompletedPayment(ctx, booking, p); err != nil {
		t.Fatalf("first reconciliation failed: %v", err)
	}
	promoted, _ := f.bookings.GetByID(ctx, "booking-1")
	if promoted.PaymentStatus != models.BookingPaymentCompleted {
		t.Fatalf("payment_status = %s, want completed", promoted.PaymentStatus)
	}
	firstCode := promoted.VerificationCode
	firstReceipts := f.receipts.Count()

	// A concurrent caller observed the same stale booking snapshot.
	if err := f.orch.ReconcileCompletedPayment(ctx, booking, p); err != nil {
		t.Fatalf("second reconciliation failed: %v", err)
	}
	again, _ := f.bookings.GetByID(ctx, "booking-1")
	if again.VerificationCode != firstCode {
		t.Error("second reconciliation rotated the verification code")
	}
	if f.receipts.Count() != firstReceipts {
		t.Error("second reconciliation created another receipt")
	}
}

func TestNotificationFailureDoesNotFailWorkflow(t *testing.T) {
	f := newFixture()
	f.seedRide()
	f.seedBooking(2)
	f.notifier.err = errors.New("fcm unavailable")
	p := f.seedPayment(2000, models.PaymentStatusProcessing)
	ctx := context.Background()

	if err := f.orch.HandleStatusChange(ctx, p, models.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("workflow failed on notification error: %v", err)
	}
	booking, _ := f.bookings.GetByID(ctx, "booking-1")
	if booking.PaymentStatus != models.BookingPaymentCompleted {
		t.Error("booking promotion must not depend on push delivery")
	}
}
