// Package repotest provides in-memory repository implementations for tests.
// They mirror the conditional-update semantics of the Mongo repositories,
// including the capacity check in seat reservation and the exactly-once
// promotion and verification guards.
package repotest

import (
	"context"
	"errors"
	"sync"
	"time"

	"rideka/database/repository"
	bookingRepo "rideka/database/repository/booking"
	"rideka/models"

	"github.com/google/uuid"
)

// RideRepo is an in-memory ride store.
type RideRepo struct {
	mu    sync.Mutex
	rides map[string]*models.Ride
}

func NewRideRepo() *RideRepo {
	return &RideRepo{rides: make(map[string]*models.Ride)}
}

func (r *RideRepo) Seed(ride *models.Ride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ride
	r.rides[cp.ID] = &cp
}

func (r *RideRepo) GetByID(_ context.Context, id string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	return &cp, nil
}

func (r *RideRepo) Create(_ context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ride
	r.rides[cp.ID] = &cp
	return nil
}

func (r *RideRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.Status = status
	return nil
}

// SeatsAvailable reads the current capacity, for assertions.
func (r *RideRepo) SeatsAvailable(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ride, ok := r.rides[id]; ok {
		return ride.SeatsAvailable
	}
	return -1
}

// BookingRepo is an in-memory booking store wired to a RideRepo for the
// seat-adjusting primitives and to a RefundRepo for refund preparation.
type BookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	rides    *RideRepo
	refunds  *RefundRepo

	// ReserveErr, when set, makes ReserveSeats fail with this error.
	ReserveErr error
}

func NewBookingRepo(rides *RideRepo, refunds *RefundRepo) *BookingRepo {
	return &BookingRepo{
		bookings: make(map[string]*models.Booking),
		rides:    rides,
		refunds:  refunds,
	}
}

func (r *BookingRepo) Seed(b *models.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[cp.ID] = &cp
}

func (r *BookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BookingRepo) GetActiveByRideAndUser(_ context.Context, rideID, userID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.RideID == rideID && b.UserID == userID && !b.IsTerminal() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *BookingRepo) UpdateSeatsAndPickup(_ context.Context, id string, seats int, pickupName string, pickupTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Seats = seats
	b.PickupPointName = pickupName
	b.PickupTime = pickupTime
	return nil
}

func (r *BookingRepo) takeSeats(rideID string, delta int) error {
	r.rides.mu.Lock()
	defer r.rides.mu.Unlock()
	ride, ok := r.rides.rides[rideID]
	if !ok {
		return errors.New("not enough seats available")
	}
	// Taking seats requires a live ride with capacity; restores work on
	// cancelled rides too.
	if delta > 0 && (ride.Status != models.RideStatusActive || ride.SeatsAvailable < delta) {
		return errors.New("not enough seats available")
	}
	ride.SeatsAvailable -= delta
	return nil
}

func (r *BookingRepo) ReserveSeats(_ context.Context, rideID, userID string, seats int, bookingID *string) (*bookingRepo.ReservationResult, error) {
	if r.ReserveErr != nil {
		return nil, r.ReserveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if seats <= 0 {
		return &bookingRepo.ReservationResult{Success: false, ErrorMessage: "seats must be positive"}, nil
	}

	if bookingID == nil {
		if err := r.takeSeats(rideID, seats); err != nil {
			return &bookingRepo.ReservationResult{Success: false, ErrorMessage: err.Error()}, nil
		}
		id := uuid.New().String()
		now := time.Now()
		r.bookings[id] = &models.Booking{
			ID:            id,
			RideID:        rideID,
			UserID:        userID,
			Seats:         seats,
			Status:        models.BookingStatusPending,
			PaymentStatus: models.BookingPaymentPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return &bookingRepo.ReservationResult{Success: true, BookingID: id}, nil
	}

	existing, ok := r.bookings[*bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if existing.IsTerminal() {
		return &bookingRepo.ReservationResult{Success: false, ErrorMessage: "booking is no longer active"}, nil
	}
	delta := seats - existing.Seats
	if delta != 0 {
		if err := r.takeSeats(rideID, delta); err != nil {
			return &bookingRepo.ReservationResult{Success: false, ErrorMessage: err.Error()}, nil
		}
	}
	existing.Seats = seats
	return &bookingRepo.ReservationResult{Success: true, BookingID: existing.ID}, nil
}

func (r *BookingRepo) CancelAndRestoreSeats(_ context.Context, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return false, nil
	}
	if b.IsTerminal() {
		return false, nil
	}
	b.Status = models.BookingStatusCancelled
	if err := r.takeSeats(b.RideID, -b.Seats); err != nil {
		return false, err
	}
	return true, nil
}

func (r *BookingRepo) CancelWithRefundPreparation(_ context.Context, args bookingRepo.CancelWithRefundArgs) (*bookingRepo.CancelWithRefundResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[args.BookingID]
	if !ok || b.UserID != args.UserID || b.IsTerminal() {
		return &bookingRepo.CancelWithRefundResult{
			Success:      false,
			ErrorMessage: "booking not found or not cancellable",
			DebugInfo:    "booking lookup",
		}, nil
	}
	b.Status = models.BookingStatusCancelled
	if err := r.takeSeats(b.RideID, -b.Seats); err != nil {
		return &bookingRepo.CancelWithRefundResult{Success: false, ErrorMessage: err.Error(), DebugInfo: "seat restore"}, nil
	}

	refund := &models.Refund{
		ID:          uuid.New().String(),
		BookingID:   args.BookingID,
		UserID:      args.UserID,
		PaymentIDs:  args.PaymentIDs,
		Type:        args.RefundType,
		Amount:      args.Amount,
		Currency:    args.Currency,
		Provider:    args.Provider,
		PhoneNumber: args.PhoneNumber,
		Status:      models.PaymentStatusPending,
	}
	if err := r.refunds.Create(context.Background(), refund); err != nil {
		return &bookingRepo.CancelWithRefundResult{Success: false, ErrorMessage: err.Error(), DebugInfo: "refund insert"}, nil
	}
	return &bookingRepo.CancelWithRefundResult{
		Success:          true,
		BookingCancelled: true,
		RefundID:         refund.ID,
	}, nil
}

func (r *BookingRepo) SetPaymentOutcome(_ context.Context, id, paymentStatus, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.PaymentStatus = paymentStatus
	b.Status = status
	return nil
}

func (r *BookingRepo) PromoteIfUnpaid(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	if b.PaymentStatus != models.BookingPaymentPending && b.PaymentStatus != models.BookingPaymentFailed {
		return false, nil
	}
	b.PaymentStatus = models.BookingPaymentCompleted
	b.Status = models.BookingStatusPendingVerification
	return true, nil
}

func (r *BookingRepo) SetPaymentStatusIf(_ context.Context, id, next string, expected []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	for _, s := range expected {
		if b.PaymentStatus == s {
			b.PaymentStatus = next
			return true, nil
		}
	}
	return false, nil
}

func (r *BookingRepo) SetVerificationCode(_ context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.VerificationCode = code
	b.CodeExpiresAt = expiresAt
	b.CodeVerified = false
	return nil
}

func (r *BookingRepo) VerifyCode(_ context.Context, id, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	if b.CodeVerified || b.VerificationCode != code || !b.CodeExpiresAt.After(time.Now()) {
		return false, nil
	}
	b.CodeVerified = true
	b.Status = models.BookingStatusConfirmed
	return true, nil
}

func (r *BookingRepo) SetStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	return nil
}

// PaymentRepo is an in-memory payment store with idempotency-key semantics.
type PaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	byKey    map[string]string
}

func NewPaymentRepo() *PaymentRepo {
	return &PaymentRepo{
		payments: make(map[string]*models.Payment),
		byKey:    make(map[string]string),
	}
}

func (r *PaymentRepo) Seed(p *models.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[cp.ID] = &cp
	if cp.IdempotencyKey != "" {
		r.byKey[cp.IdempotencyKey] = cp.ID
	}
}

func (r *PaymentRepo) Create(_ context.Context, p *models.Payment) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byKey[p.IdempotencyKey]; ok {
		cp := *r.payments[id]
		return &cp, nil
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.payments[cp.ID] = &cp
	r.byKey[cp.IdempotencyKey] = cp.ID
	out := cp
	return &out, nil
}

func (r *PaymentRepo) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepo) GetByTransactionID(_ context.Context, txn string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TransactionID == txn {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PaymentRepo) GetByIdempotencyKey(_ context.Context, key string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.payments[id]
	return &cp, nil
}

func (r *PaymentRepo) ListByBooking(_ context.Context, bookingID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *PaymentRepo) SumCompletedByBooking(_ context.Context, bookingID string) (float64, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	var ids []string
	for _, p := range r.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusCompleted {
			sum += p.Amount
			ids = append(ids, p.ID)
		}
	}
	return sum, ids, nil
}

func (r *PaymentRepo) UpdateStatus(_ context.Context, id, status string, metadata map[string]string, paymentTime *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	if paymentTime != nil {
		p.PaymentTime = paymentTime
	}
	if p.Metadata == nil {
		p.Metadata = map[string]string{}
	}
	for k, v := range metadata {
		p.Metadata[k] = v
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *PaymentRepo) SetTransactionID(_ context.Context, id, txn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.TransactionID = txn
	return nil
}

func (r *PaymentRepo) FindStale(_ context.Context, olderThan time.Time) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if (p.Status == models.PaymentStatusPending || p.Status == models.PaymentStatusProcessing) &&
			p.UpdatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// PayoutRepo is an in-memory payout store enforcing one payout per booking.
type PayoutRepo struct {
	mu      sync.Mutex
	payouts map[string]*models.Payout
}

func NewPayoutRepo() *PayoutRepo {
	return &PayoutRepo{payouts: make(map[string]*models.Payout)}
}

func (r *PayoutRepo) Seed(p *models.Payout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payouts[cp.ID] = &cp
}

func (r *PayoutRepo) Create(_ context.Context, p *models.Payout) (bool, *models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payouts {
		if existing.BookingID == p.BookingID {
			cp := *existing
			return false, &cp, nil
		}
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.payouts[cp.ID] = &cp
	out := cp
	return true, &out, nil
}

func (r *PayoutRepo) GetByID(_ context.Context, id string) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PayoutRepo) GetByBooking(_ context.Context, bookingID string) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payouts {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PayoutRepo) GetByTransactionID(_ context.Context, txn string) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payouts {
		if p.TransactionID == txn {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PayoutRepo) UpdateStatus(_ context.Context, id, status, failureReason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	if failureReason != "" {
		p.FailureReason = failureReason
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *PayoutRepo) SetTransactionID(_ context.Context, id, txn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.TransactionID = txn
	return nil
}

func (r *PayoutRepo) RecordRetryAttempt(_ context.Context, id string, attempt models.RetryAttempt, nextRetryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.RetryHistory = append(p.RetryHistory, attempt)
	p.RetryCount++
	if nextRetryAt != nil {
		p.NextRetryAt = nextRetryAt
	}
	return nil
}

func (r *PayoutRepo) MarkRetryExhausted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.RetryExhausted = true
	return nil
}

func (r *PayoutRepo) FindStale(_ context.Context, olderThan time.Time) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payout
	for _, p := range r.payouts {
		if (p.Status == models.PaymentStatusPending || p.Status == models.PaymentStatusProcessing) &&
			p.UpdatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *PayoutRepo) FindRetryable(_ context.Context, now time.Time) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payout
	for _, p := range r.payouts {
		if p.Status != models.PaymentStatusFailed || p.RetryExhausted {
			continue
		}
		if p.NextRetryAt != nil && p.NextRetryAt.After(now) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// RefundRepo is an in-memory refund store.
type RefundRepo struct {
	mu      sync.Mutex
	refunds map[string]*models.Refund
}

func NewRefundRepo() *RefundRepo {
	return &RefundRepo{refunds: make(map[string]*models.Refund)}
}

func (r *RefundRepo) Seed(rf *models.Refund) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rf
	r.refunds[cp.ID] = &cp
}

// All returns every stored refund, for assertions.
func (r *RefundRepo) All() []models.Refund {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Refund
	for _, rf := range r.refunds {
		out = append(out, *rf)
	}
	return out
}

func (r *RefundRepo) Create(_ context.Context, rf *models.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rf
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.refunds[cp.ID] = &cp
	return nil
}

func (r *RefundRepo) GetByID(_ context.Context, id string) (*models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.refunds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rf
	return &cp, nil
}

func (r *RefundRepo) GetByTransactionID(_ context.Context, txn string) (*models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rf := range r.refunds {
		if rf.TransactionID == txn {
			cp := *rf
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *RefundRepo) UpdateStatus(_ context.Context, id, status, failureReason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.refunds[id]
	if !ok {
		return repository.ErrNotFound
	}
	rf.Status = status
	if failureReason != "" {
		rf.FailureReason = failureReason
	}
	rf.UpdatedAt = time.Now()
	return nil
}

func (r *RefundRepo) SetTransactionID(_ context.Context, id, txn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.refunds[id]
	if !ok {
		return repository.ErrNotFound
	}
	rf.TransactionID = txn
	return nil
}

func (r *RefundRepo) FindStale(_ context.Context, olderThan time.Time) ([]models.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Refund
	for _, rf := range r.refunds {
		if (rf.Status == models.PaymentStatusPending || rf.Status == models.PaymentStatusProcessing) &&
			rf.UpdatedAt.Before(olderThan) {
			out = append(out, *rf)
		}
	}
	return out, nil
}

// ReceiptRepo is an in-memory receipt store keyed by payment id.
type ReceiptRepo struct {
	mu       sync.Mutex
	receipts map[string]*models.Receipt
}

func NewReceiptRepo() *ReceiptRepo {
	return &ReceiptRepo{receipts: make(map[string]*models.Receipt)}
}

func (r *ReceiptRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.receipts)
}

func (r *ReceiptRepo) CreateIdempotent(_ context.Context, receipt *models.Receipt) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.receipts[receipt.PaymentID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *receipt
	cp.IssuedAt = time.Now()
	r.receipts[cp.PaymentID] = &cp
	out := cp
	return &out, nil
}

func (r *ReceiptRepo) GetByPaymentID(_ context.Context, paymentID string) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[paymentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *receipt
	return &cp, nil
}

// UserRepo is an in-memory user store.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*models.User)}
}

func (r *UserRepo) Seed(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[cp.ID] = &cp
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
