package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"rideka/config"
	"rideka/models"
)

// OrangeGateway integrates the Orange Money Web Payment API.
type OrangeGateway struct {
	baseURL      string
	clientID     string
	clientSecret string
	merchantKey  string
}

func NewOrangeGateway() *OrangeGateway {
	return &OrangeGateway{
		baseURL:      config.AppConfig.OrangeBaseURL,
		clientID:     config.AppConfig.OrangeClientID,
		clientSecret: config.AppConfig.OrangeClientSecret,
		merchantKey:  config.AppConfig.OrangeMerchantKey,
	}
}

func (g *OrangeGateway) Provider() string { return models.ProviderOrange }

func (g *OrangeGateway) token(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	headers := map[string]string{"Authorization": "Basic " + auth}
	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/oauth/v3/token?grant_type=client_credentials", headers, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("orange token request returned %d", status)
	}
	token := stringField(body, "access_token")
	if token == "" {
		return "", fmt.Errorf("orange token response missing access_token")
	}
	return token, nil
}

func (g *OrangeGateway) Payin(ctx context.Context, req PayinRequest) (*Result, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"merchant_key": g.merchantKey,
		"currency":     req.Currency,
		"order_id":     req.Reference,
		"amount":       req.Amount,
		"reference":    req.Description,
		"subscriber":   req.PhoneNumber,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/orange-money-webpay/cm/v1/webpayment", headers, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return &Result{Success: false, Message: stringField(body, "message", "description"), Status: "FAILED", APIResponse: body}, nil
	}
	return &Result{
		Success:           true,
		TransactionID:     stringField(body, "pay_token", "payment_url"),
		VerificationToken: stringField(body, "notif_token"),
		Status:            "INITIATED",
		APIResponse:       body,
	}, nil
}

func (g *OrangeGateway) Payout(ctx context.Context, req PayoutRequest) (*Result, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"partner_key": g.merchantKey,
		"currency":    req.Currency,
		"reference":   req.Reference,
		"amount":      req.Amount,
		"recipient":   req.PhoneNumber,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/orange-money-webpay/cm/v1/cashin", headers, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return &Result{Success: false, Message: stringField(body, "message", "description"), Status: "FAILED", APIResponse: body}, nil
	}
	return &Result{
		Success:       true,
		TransactionID: stringField(body, "txnid", "transaction_id"),
		Status:        stringField(body, "status"),
		APIResponse:   body,
	}, nil
}

func (g *OrangeGateway) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	return g.Payout(ctx, PayoutRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		PhoneNumber: req.PhoneNumber,
		Reference:   req.Reference,
		Description: "Rideka refund",
	})
}

func (g *OrangeGateway) CheckPayment(ctx context.Context, transactionID string) (*Result, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"order_id":  transactionID,
		"amount":    nil,
		"pay_token": transactionID,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/orange-money-webpay/cm/v1/transactionstatus", headers, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return &Result{Success: false, Message: stringField(body, "message"), Status: "PENDING", APIResponse: body}, nil
	}
	native := stringField(body, "status")
	return &Result{
		Success:       native == "SUCCESS" || native == "SUCCESSFULL",
		Message:       stringField(body, "message"),
		TransactionID: transactionID,
		Status:        native,
		APIResponse:   body,
	}, nil
}

func (g *OrangeGateway) CheckPayoutStatus(ctx context.Context, transactionID string) (*Result, error) {
	// Orange uses one status endpoint for both directions.
	return g.CheckPayment(ctx, transactionID)
}
