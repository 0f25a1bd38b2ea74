package reconcile

import (
	"context"
	"time"

	payoutRepo "rideka/database/repository/payout"
	refundRepo "rideka/database/repository/refund"
	"rideka/models"
	"rideka/services/gateway"
	"rideka/services/orchestration"
	"rideka/services/payment"
	"rideka/services/payout"
	"rideka/services/refund"

	"go.uber.org/zap"
)

// Sweeper is the self-healing layer: it finds money movements stuck in a
// non-terminal state longer than StaleAfter, asks the provider what really
// happened, and feeds the answer back through the same code paths webhooks
// use. Sweeps are idempotent; running one twice changes nothing the second
// time.
type Sweeper struct {
	Payments     payment.PaymentService
	Payouts      payoutRepo.PayoutRepository
	Refunds      refundRepo.RefundRepository
	PayoutSvc    payout.PayoutService
	RefundSvc    refund.RefundService
	Orchestrator orchestration.Orchestrator
	Gateways     *gateway.Registry
	Logger       *zap.Logger

	StaleAfter time.Duration

	// ExclusiveProvider, when non-empty, restricts external status checks
	// to that provider. Used during provider incidents and in sandboxes
	// where only one provider has live credentials.
	ExclusiveProvider string

	// EnqueueRetry hands a retryable payout to the task queue. Injected so
	// the sweep logic stays independent of the queue client.
	EnqueueRetry func(ctx context.Context, payoutID string) error
}

func (s *Sweeper) skipProvider(provider string) bool {
	return s.ExclusiveProvider != "" && provider != s.ExclusiveProvider
}

// SweepPayments reconciles payments stuck in pending or processing.
func (s *Sweeper) SweepPayments(ctx context.Context) error {
	stale, err := s.Payments.FindStale(ctx, time.Now().Add(-s.StaleAfter))
	if err != nil {
		return err
	}
	for i := range stale {
		p := &stale[i]
		if s.skipProvider(p.Provider) {
			continue
		}
		if err := s.reconcilePayment(ctx, p); err != nil {
			s.Logger.Error("Payment reconciliation failed",
				zap.String("paymentId", p.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Sweeper) reconcilePayment(ctx context.Context, p *models.Payment) error {
	// A stale pending payment with no provider reference never left the
	// initiation step; there is nothing to check and nothing to collect.
	if p.TransactionID == "" {
		s.Logger.Warn("Failing stale payment with no provider reference",
			zap.String("paymentId", p.ID), zap.String("status", p.Status))
		return s.Orchestrator.HandleStatusChange(ctx, p, models.PaymentStatusFailed,
			map[string]string{"failure_reason": "initiation never completed"})
	}

	gw, err := s.Gateways.For(p.Provider)
	if err != nil {
		return err
	}
	res, err := gw.CheckPayment(ctx, p.TransactionID)
	if err != nil {
		return err
	}
	next := gateway.MapStatus(p.Provider, res.Status)
	if next == models.PaymentStatusProcessing && p.Status == models.PaymentStatusProcessing {
		// Still in flight on the provider side; check again next sweep.
		return nil
	}
	return s.Orchestrator.HandleStatusChange(ctx, p, next,
		map[string]string{"provider_status": res.Status, "source": "reconciliation"})
}

// SweepPayouts reconciles payouts stuck in processing and queues retries for
// failed ones whose cooldown has elapsed.
func (s *Sweeper) SweepPayouts(ctx context.Context) error {
	stale, err := s.Payouts.FindStale(ctx, time.Now().Add(-s.StaleAfter))
	if err != nil {
		return err
	}
	for i := range stale {
		p := &stale[i]
		if s.skipProvider(p.Provider) {
			continue
		}
		if p.TransactionID == "" {
			// The payout row exists but the transfer call never went out.
			// Fail it so the retry machinery takes over.
			s.Logger.Warn("Failing stale payout with no provider reference",
				zap.String("payoutId", p.ID), zap.String("status", p.Status))
			if err := s.PayoutSvc.ApplyPayoutOutcome(ctx, p, models.PaymentStatusFailed,
				"initiation never completed"); err != nil {
				s.Logger.Error("Failed to apply payout outcome",
					zap.String("payoutId", p.ID), zap.Error(err))
			}
			continue
		}
		gw, err := s.Gateways.For(p.Provider)
		if err != nil {
			s.Logger.Error("Payout reconciliation failed",
				zap.String("payoutId", p.ID), zap.Error(err))
			continue
		}
		res, err := gw.CheckPayoutStatus(ctx, p.TransactionID)
		if err != nil {
			s.Logger.Error("Payout status check failed",
				zap.String("payoutId", p.ID), zap.Error(err))
			continue
		}
		next := gateway.MapStatus(p.Provider, res.Status)
		if next == models.PaymentStatusProcessing {
			continue
		}
		if err := s.PayoutSvc.ApplyPayoutOutcome(ctx, p, next, res.Message); err != nil {
			s.Logger.Error("Failed to apply payout outcome",
				zap.String("payoutId", p.ID), zap.Error(err))
		}
	}

	return s.enqueueRetryablePayouts(ctx)
}

func (s *Sweeper) enqueueRetryablePayouts(ctx context.Context) error {
	if s.EnqueueRetry == nil {
		return nil
	}
	retryable, err := s.Payouts.FindRetryable(ctx, time.Now())
	if err != nil {
		return err
	}
	for i := range retryable {
		p := &retryable[i]
		if s.skipProvider(p.Provider) {
			continue
		}
		if !payout.ShouldRetry(p.FailureReason) {
			continue
		}
		if err := s.EnqueueRetry(ctx, p.ID); err != nil {
			s.Logger.Error("Failed to enqueue payout retry",
				zap.String("payoutId", p.ID), zap.Error(err))
		}
	}
	return nil
}

// SweepRefunds reconciles refunds stuck in pending or processing.
func (s *Sweeper) SweepRefunds(ctx context.Context) error {
	stale, err := s.Refunds.FindStale(ctx, time.Now().Add(-s.StaleAfter))
	if err != nil {
		return err
	}
	for i := range stale {
		r := &stale[i]
		if s.skipProvider(r.Provider) || r.TransactionID == "" {
			continue
		}
		gw, err := s.Gateways.For(r.Provider)
		if err != nil {
			s.Logger.Error("Refund reconciliation failed",
				zap.String("refundId", r.ID), zap.Error(err))
			continue
		}
		res, err := gw.CheckPayment(ctx, r.TransactionID)
		if err != nil {
			s.Logger.Error("Refund status check failed",
				zap.String("refundId", r.ID), zap.Error(err))
			continue
		}
		next := gateway.MapStatus(r.Provider, res.Status)
		if next == models.PaymentStatusProcessing {
			continue
		}
		if err := s.RefundSvc.ApplyRefundOutcome(ctx, r, next, res.Message); err != nil {
			s.Logger.Error("Failed to apply refund outcome",
				zap.String("refundId", r.ID), zap.Error(err))
		}
	}
	return nil
}
