package payout

import "math"

// FeeBreakdown splits a gross booking amount into what the platform and the
// provider keep and what the driver receives.
type FeeBreakdown struct {
	OriginalAmount float64
	TransactionFee float64
	Commission     float64
	NetAmount      float64
}

// CalculateFees applies the transaction fee and platform commission to a
// gross amount. XAF has no minor unit, so every component is rounded to a
// whole franc and the net absorbs the rounding remainder.
func CalculateFees(gross, feeRate, commissionRate float64) FeeBreakdown {
	fee := math.Round(gross * feeRate)
	commission := math.Round(gross * commissionRate)
	net := gross - fee - commission
	if net < 0 {
		net = 0
	}
	return FeeBreakdown{
		OriginalAmount: gross,
		TransactionFee: fee,
		Commission:     commission,
		NetAmount:      net,
	}
}
