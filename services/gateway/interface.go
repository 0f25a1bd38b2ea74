package gateway

import (
	"context"
	"fmt"
)

// Result is the normalized envelope every adapter returns regardless of the
// provider's wire format.
type Result struct {
	Success           bool
	Message           string
	TransactionID     string
	VerificationToken string
	// Status is the provider-native status string, mapped by MapStatus.
	Status      string
	APIResponse map[string]interface{}
}

// PayinRequest initiates a collection from a rider's mobile money wallet.
type PayinRequest struct {
	Amount      float64
	Currency    string
	PhoneNumber string
	Reference   string
	Description string
}

// PayoutRequest disburses to a driver's wallet.
type PayoutRequest struct {
	Amount      float64
	Currency    string
	PhoneNumber string
	Reference   string
	Description string
}

// RefundRequest reverses a previous collection.
type RefundRequest struct {
	Amount        float64
	Currency      string
	PhoneNumber   string
	Reference     string
	TransactionID string
}

// PaymentGateway is the per-provider adapter surface. Implementations
// normalize provider vocabularies; they never decide transition legality.
type PaymentGateway interface {
	Provider() string
	Payin(ctx context.Context, req PayinRequest) (*Result, error)
	Payout(ctx context.Context, req PayoutRequest) (*Result, error)
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
	CheckPayment(ctx context.Context, transactionID string) (*Result, error)
	CheckPayoutStatus(ctx context.Context, transactionID string) (*Result, error)
}

// Registry resolves the adapter for a provider name.
type Registry struct {
	gateways map[string]PaymentGateway
}

func NewRegistry(gateways ...PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]PaymentGateway)}
	for _, g := range gateways {
		r.gateways[g.Provider()] = g
	}
	return r
}

func (r *Registry) For(provider string) (PaymentGateway, error) {
	g, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for provider %q", provider)
	}
	return g, nil
}

// DefaultRegistry wires the three production adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(NewMTNGateway(), NewOrangeGateway(), NewPawaPayGateway())
}
