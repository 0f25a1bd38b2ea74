package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	paymentRepo "rideka/database/repository/payment"
	"rideka/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPaymentService is the production implementation.
type DefaultPaymentService struct {
	Repo   paymentRepo.PaymentRepository
	Logger *zap.Logger
}

func NewDefaultPaymentService(repo paymentRepo.PaymentRepository, logger *zap.Logger) *DefaultPaymentService {
	return &DefaultPaymentService{Repo: repo, Logger: logger}
}

// Create inserts a new pending payment. Retried requests carrying the same
// idempotency key get the original row back instead of a duplicate.
func (s *DefaultPaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid payment request: %w", err)
	}

	payment := &models.Payment{
		ID:             uuid.New().String(),
		BookingID:      req.BookingID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Provider:       req.Provider,
		PhoneNumber:    req.PhoneNumber,
		IdempotencyKey: req.IdempotencyKey,
		Status:         models.PaymentStatusPending,
	}

	stored, err := s.Repo.Create(ctx, payment)
	if err != nil {
		return nil, err
	}
	if stored.ID != payment.ID {
		s.Logger.Info("Idempotent payment create returned existing row",
			zap.String("paymentId", stored.ID),
			zap.String("idempotencyKey", req.IdempotencyKey))
	}
	return stored, nil
}

func (s *DefaultPaymentService) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DefaultPaymentService) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return s.Repo.GetByTransactionID(ctx, transactionID)
}

func (s *DefaultPaymentService) ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	return s.Repo.ListByBooking(ctx, bookingID)
}

func (s *DefaultPaymentService) SumCompletedByBooking(ctx context.Context, bookingID string) (float64, []string, error) {
	return s.Repo.SumCompletedByBooking(ctx, bookingID)
}

// UpdateStatus enforces the transition table before any write and stamps
// payment_time when the payment completes.
func (s *DefaultPaymentService) UpdateStatus(ctx context.Context, id, next string, metadata map[string]string) (*models.Payment, error) {
	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ValidateTransition(current.Status, next) {
		return nil, &InvalidTransitionError{From: current.Status, To: next}
	}

	var paymentTime *time.Time
	if next == models.PaymentStatusCompleted {
		now := time.Now()
		paymentTime = &now
	}

	if err := s.Repo.UpdateStatus(ctx, id, next, metadata, paymentTime); err != nil {
		return nil, err
	}

	s.Logger.Info("Payment status updated",
		zap.String("paymentId", id),
		zap.String("from", current.Status),
		zap.String("to", next))

	current.Status = next
	current.PaymentTime = paymentTime
	if current.Metadata == nil {
		current.Metadata = map[string]string{}
	}
	for k, v := range metadata {
		current.Metadata[k] = v
	}
	return current, nil
}

func (s *DefaultPaymentService) SetTransactionID(ctx context.Context, id, transactionID string) error {
	return s.Repo.SetTransactionID(ctx, id, transactionID)
}

func (s *DefaultPaymentService) FindStale(ctx context.Context, olderThan time.Time) ([]models.Payment, error) {
	return s.Repo.FindStale(ctx, olderThan)
}

func validateCreateRequest(req CreatePaymentRequest) error {
	if req.Amount <= 0 {
		return errors.New("invalid payment amount")
	}
	if req.BookingID == "" {
		return errors.New("missing booking ID")
	}
	if req.IdempotencyKey == "" {
		return errors.New("missing idempotency key")
	}
	switch req.Provider {
	case models.ProviderMTN, models.ProviderOrange, models.ProviderPawaPay:
	default:
		return fmt.Errorf("unsupported provider: %s", req.Provider)
	}
	return nil
}
