package gateway

import (
	"testing"

	"rideka/models"
)

func TestMapStatusKnownVocabulary(t *testing.T) {
	cases := []struct {
		provider string
		native   string
		want     string
	}{
		{models.ProviderMTN, "SUCCESSFUL", models.PaymentStatusCompleted},
		{models.ProviderMTN, "successful", models.PaymentStatusCompleted},
		{models.ProviderMTN, "FAILED", models.PaymentStatusFailed},
		{models.ProviderMTN, "REJECTED", models.PaymentStatusFailed},
		{models.ProviderMTN, "TIMEOUT", models.PaymentStatusFailed},
		{models.ProviderMTN, "PENDING", models.PaymentStatusProcessing},
		{models.ProviderMTN, "ONGOING", models.PaymentStatusProcessing},

		{models.ProviderOrange, "SUCCESS", models.PaymentStatusCompleted},
		{models.ProviderOrange, "SUCCESSFUL", models.PaymentStatusCompleted},
		// Misspelled variant observed on real Orange callbacks.
		{models.ProviderOrange, "SUCCESSFULL", models.PaymentStatusCompleted},
		{models.ProviderOrange, "FAILED", models.PaymentStatusFailed},
		{models.ProviderOrange, "EXPIRED", models.PaymentStatusFailed},
		{models.ProviderOrange, "CANCELLED", models.PaymentStatusFailed},
		{models.ProviderOrange, "INITIATED", models.PaymentStatusProcessing},

		{models.ProviderPawaPay, "COMPLETED", models.PaymentStatusCompleted},
		{models.ProviderPawaPay, "FAILED", models.PaymentStatusFailed},
		{models.ProviderPawaPay, "REJECTED", models.PaymentStatusFailed},
		{models.ProviderPawaPay, "ACCEPTED", models.PaymentStatusProcessing},
		{models.ProviderPawaPay, "SUBMITTED", models.PaymentStatusProcessing},
		{models.ProviderPawaPay, "ENQUEUED", models.PaymentStatusProcessing},
		{models.ProviderPawaPay, "DUPLICATE_IGNORED", models.PaymentStatusProcessing},
		{models.ProviderPawaPay, "IN_RECONCILIATION", models.PaymentStatusProcessing},
	}
	for _, c := range cases {
		if got := MapStatus(c.provider, c.native); got != c.want {
			t.Errorf("MapStatus(%s, %q) = %s, want %s", c.provider, c.native, got, c.want)
		}
	}
}

func TestMapStatusUnknownNeverCompletes(t *testing.T) {
	unknowns := []string{"", "WAT", "SUCCESSISH", "COMPLETED_MAYBE", "42", "null"}
	providers := []string{models.ProviderMTN, models.ProviderOrange, models.ProviderPawaPay, "not-a-provider"}
	for _, provider := range providers {
		for _, native := range unknowns {
			got := MapStatus(provider, native)
			if got == models.PaymentStatusCompleted {
				t.Errorf("MapStatus(%s, %q) mapped an unknown status to completed", provider, native)
			}
			if got != models.PaymentStatusProcessing && got != models.PaymentStatusFailed {
				t.Errorf("MapStatus(%s, %q) = %q, mapping must be total", provider, native, got)
			}
		}
	}
}

func TestMapStatusTrimsWhitespace(t *testing.T) {
	if got := MapStatus(models.ProviderMTN, "  SUCCESSFUL \n"); got != models.PaymentStatusCompleted {
		t.Errorf("expected whitespace-padded status to map, got %s", got)
	}
}
