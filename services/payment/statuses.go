package payment

import (
	"fmt"

	"rideka/models"
)

// allowedTransitions is the single source of truth for payment status
// legality. Provider mappers decide which status to request, never whether
// the transition is legal.
var allowedTransitions = map[string][]string{
	models.PaymentStatusPending: {
		models.PaymentStatusProcessing,
		models.PaymentStatusFailed,
		models.PaymentStatusCancelled,
	},
	models.PaymentStatusProcessing: {
		models.PaymentStatusCompleted,
		models.PaymentStatusFailed,
	},
	models.PaymentStatusCompleted: {
		models.PaymentStatusRefunded,
	},
	models.PaymentStatusFailed:    {},
	models.PaymentStatusCancelled: {},
	models.PaymentStatusRefunded:  {},
}

// InvalidTransitionError reports a rejected payment status transition. It is
// returned before any write happens.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid payment status transition: %s -> %s", e.From, e.To)
}

// ValidateTransition reports whether current -> next is a legal payment
// status transition.
func ValidateTransition(current, next string) bool {
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}
