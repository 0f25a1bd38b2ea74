package gateway

import (
	"context"
	"fmt"
	"net/http"

	"rideka/config"
	"rideka/models"

	"github.com/google/uuid"
)

// PawaPayGateway integrates the pawaPay deposits/payouts/refunds API.
type PawaPayGateway struct {
	baseURL  string
	apiToken string
}

func NewPawaPayGateway() *PawaPayGateway {
	return &PawaPayGateway{
		baseURL:  config.AppConfig.PawaPayBaseURL,
		apiToken: config.AppConfig.PawaPayAPIToken,
	}
}

func (g *PawaPayGateway) Provider() string { return models.ProviderPawaPay }

func (g *PawaPayGateway) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + g.apiToken}
}

func (g *PawaPayGateway) Payin(ctx context.Context, req PayinRequest) (*Result, error) {
	depositID := uuid.New().String()
	payload := map[string]interface{}{
		"depositId":            depositID,
		"amount":               fmt.Sprintf("%.0f", req.Amount),
		"currency":             req.Currency,
		"correspondent":        "MTN_MOMO_CMR",
		"payer":                map[string]interface{}{"type": "MSISDN", "address": map[string]string{"value": req.PhoneNumber}},
		"statementDescription": req.Description,
	}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/deposits", g.headers(), payload)
	if err != nil {
		return nil, err
	}
	native := stringField(body, "status")
	if status != http.StatusOK && status != http.StatusCreated {
		return &Result{Success: false, Message: stringField(body, "rejectionReason", "message"), Status: "REJECTED", APIResponse: body}, nil
	}
	return &Result{Success: native != "REJECTED", TransactionID: depositID, Status: native, APIResponse: body}, nil
}

func (g *PawaPayGateway) Payout(ctx context.Context, req PayoutRequest) (*Result, error) {
	payoutID := uuid.New().String()
	payload := map[string]interface{}{
		"payoutId":             payoutID,
		"amount":               fmt.Sprintf("%.0f", req.Amount),
		"currency":             req.Currency,
		"correspondent":        "MTN_MOMO_CMR",
		"recipient":            map[string]interface{}{"type": "MSISDN", "address": map[string]string{"value": req.PhoneNumber}},
		"statementDescription": req.Description,
	}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/payouts", g.headers(), payload)
	if err != nil {
		return nil, err
	}
	native := stringField(body, "status")
	if status != http.StatusOK && status != http.StatusCreated {
		return &Result{Success: false, Message: stringField(body, "rejectionReason", "message"), Status: "REJECTED", APIResponse: body}, nil
	}
	return &Result{Success: native != "REJECTED", TransactionID: payoutID, Status: native, APIResponse: body}, nil
}

// Refund uses pawaPay's first-class refund resource against the original
// deposit.
func (g *PawaPayGateway) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	refundID := uuid.New().String()
	payload := map[string]interface{}{
		"refundId":  refundID,
		"depositId": req.TransactionID,
		"amount":    fmt.Sprintf("%.0f", req.Amount),
	}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/refunds", g.headers(), payload)
	if err != nil {
		return nil, err
	}
	native := stringField(body, "status")
	if status != http.StatusOK && status != http.StatusCreated {
		return &Result{Success: false, Message: stringField(body, "rejectionReason", "message"), Status: "REJECTED", APIResponse: body}, nil
	}
	return &Result{Success: native != "REJECTED", TransactionID: refundID, Status: native, APIResponse: body}, nil
}

func (g *PawaPayGateway) CheckPayment(ctx context.Context, transactionID string) (*Result, error) {
	return g.check(ctx, "deposits", transactionID)
}

func (g *PawaPayGateway) CheckPayoutStatus(ctx context.Context, transactionID string) (*Result, error) {
	return g.check(ctx, "payouts", transactionID)
}

func (g *PawaPayGateway) check(ctx context.Context, resource, transactionID string) (*Result, error) {
	url := fmt.Sprintf("%s/%s/%s", g.baseURL, resource, transactionID)
	status, body, err := doJSON(ctx, http.MethodGet, url, g.headers(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return &Result{Success: false, Message: stringField(body, "message"), Status: "SUBMITTED", APIResponse: body}, nil
	}

	// Status endpoints return a one-element array.
	native := stringField(body, "status")
	if native == "" {
		if list, ok := body["data"].([]interface{}); ok && len(list) > 0 {
			if entry, ok := list[0].(map[string]interface{}); ok {
				native = stringField(entry, "status")
			}
		}
	}
	return &Result{
		Success:       native == "COMPLETED",
		Message:       stringField(body, "failureReason", "rejectionReason"),
		TransactionID: transactionID,
		Status:        native,
		APIResponse:   body,
	}, nil
}
