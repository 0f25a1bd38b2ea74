package payout

import (
	"context"

	"rideka/models"
)

// PayoutService releases driver earnings. Money only moves after the driver
// verifies the rider's pickup code; the unique payout-per-booking index
// makes double release impossible.
type PayoutService interface {
	// VerifyAndRelease checks the pickup code and, on the first successful
	// verification, creates the payout and disburses it to the driver.
	VerifyAndRelease(ctx context.Context, bookingID, driverID, code string) (*models.Payout, error)

	// ProcessRetry re-attempts a failed payout, respecting the retry cap
	// and cooldown. Exhausting the cap marks the payout for manual
	// follow-up.
	ProcessRetry(ctx context.Context, payoutID string) error

	// ApplyPayoutOutcome moves a payout record to the provider-reported
	// status. Used by the reconciliation sweep for payouts stuck in
	// processing.
	ApplyPayoutOutcome(ctx context.Context, payout *models.Payout, status, failureReason string) error
}
