package gateway

import (
	"strings"

	"rideka/models"
)

// MapStatus translates a provider-native status string into the shared
// payment status vocabulary. The mapping is total: anything unrecognized
// maps to processing, a safe non-terminal state the reconciliation sweep
// will look at again. Unknown strings never map to completed.
func MapStatus(provider, native string) string {
	switch provider {
	case models.ProviderMTN:
		return mapMTNStatus(native)
	case models.ProviderOrange:
		return mapOrangeStatus(native)
	case models.ProviderPawaPay:
		return mapPawaPayStatus(native)
	}
	return models.PaymentStatusProcessing
}

func mapMTNStatus(native string) string {
	switch strings.ToUpper(strings.TrimSpace(native)) {
	case "SUCCESSFUL":
		return models.PaymentStatusCompleted
	case "FAILED", "REJECTED", "TIMEOUT":
		return models.PaymentStatusFailed
	case "PENDING", "ONGOING":
		return models.PaymentStatusProcessing
	}
	return models.PaymentStatusProcessing
}

func mapOrangeStatus(native string) string {
	switch strings.ToUpper(strings.TrimSpace(native)) {
	// Orange's API returns both spellings in the wild.
	case "SUCCESS", "SUCCESSFUL", "SUCCESSFULL":
		return models.PaymentStatusCompleted
	case "FAILED", "EXPIRED", "CANCELLED":
		return models.PaymentStatusFailed
	case "INITIATED", "PENDING":
		return models.PaymentStatusProcessing
	}
	return models.PaymentStatusProcessing
}

func mapPawaPayStatus(native string) string {
	switch strings.ToUpper(strings.TrimSpace(native)) {
	case "COMPLETED":
		return models.PaymentStatusCompleted
	case "FAILED", "REJECTED":
		return models.PaymentStatusFailed
	case "ACCEPTED", "SUBMITTED", "ENQUEUED", "DUPLICATE_IGNORED", "IN_RECONCILIATION":
		return models.PaymentStatusProcessing
	}
	return models.PaymentStatusProcessing
}
