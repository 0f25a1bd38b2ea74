package payout

import "testing"

func TestCalculateFees(t *testing.T) {
	cases := []struct {
		name           string
		gross          float64
		feeRate        float64
		commissionRate float64
		wantFee        float64
		wantCommission float64
		wantNet        float64
	}{
		{"standard rates", 10000, 0.02, 0.10, 200, 1000, 8800},
		{"rounds to whole francs", 3333, 0.02, 0.10, 67, 333, 2933},
		{"small amount", 500, 0.02, 0.10, 10, 50, 440},
		{"zero rates", 10000, 0, 0, 0, 0, 10000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CalculateFees(c.gross, c.feeRate, c.commissionRate)
			if got.TransactionFee != c.wantFee {
				t.Errorf("fee = %.2f, want %.2f", got.TransactionFee, c.wantFee)
			}
			if got.Commission != c.wantCommission {
				t.Errorf("commission = %.2f, want %.2f", got.Commission, c.wantCommission)
			}
			if got.NetAmount != c.wantNet {
				t.Errorf("net = %.2f, want %.2f", got.NetAmount, c.wantNet)
			}
			if got.OriginalAmount != c.gross {
				t.Errorf("original = %.2f, want %.2f", got.OriginalAmount, c.gross)
			}
		})
	}
}

func TestCalculateFeesNeverNegative(t *testing.T) {
	got := CalculateFees(10, 0.9, 0.9)
	if got.NetAmount < 0 {
		t.Errorf("net = %.2f, must not go negative", got.NetAmount)
	}
}

func TestShouldRetryClassification(t *testing.T) {
	transient := []string{
		"request timed out",
		"service unavailable",
		"INTERNAL ERROR at provider",
		"upstream returned 503",
		"connection reset by peer",
		"payer limit exceeded",   // daily wallet caps reset
		"something entirely new", // unknowns default to retryable
	}
	for _, reason := range transient {
		if !ShouldRetry(reason) {
			t.Errorf("ShouldRetry(%q) = false, want true", reason)
		}
	}

	permanent := []string{
		"PAYEE NOT FOUND",
		"invalid account number",
		"invalid phone number",
		"Invalid MSISDN supplied",
		"account blocked by operator",
		"transfer not allowed for this account",
	}
	for _, reason := range permanent {
		if ShouldRetry(reason) {
			t.Errorf("ShouldRetry(%q) = true, want false", reason)
		}
	}
}

func TestShouldRetryPermanentWinsOverTransient(t *testing.T) {
	// Both fragments present: the permanent one decides.
	if ShouldRetry("timeout while checking: account blocked") {
		t.Error("a permanent reason must win even when a transient fragment matches")
	}
}
