package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"rideka/config"
	"rideka/models"
	"rideka/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MTNGateway integrates the MTN Mobile Money collection/disbursement API.
type MTNGateway struct {
	baseURL         string
	subscriptionKey string
	apiUser         string
	apiKey          string
	environment     string
}

func NewMTNGateway() *MTNGateway {
	return &MTNGateway{
		baseURL:         config.AppConfig.MTNBaseURL,
		subscriptionKey: config.AppConfig.MTNSubscriptionKey,
		apiUser:         config.AppConfig.MTNAPIUser,
		apiKey:          config.AppConfig.MTNAPIKey,
		environment:     config.AppConfig.MTNEnvironment,
	}
}

func (g *MTNGateway) Provider() string { return models.ProviderMTN }

// token obtains a bearer token from the token endpoint. MTN tokens are
// short-lived; one is fetched per operation.
func (g *MTNGateway) token(ctx context.Context, product string) (string, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(g.apiUser + ":" + g.apiKey))
	headers := map[string]string{
		"Authorization":             "Basic " + auth,
		"Ocp-Apim-Subscription-Key": g.subscriptionKey,
	}
	status, body, err := doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/%s/token/", g.baseURL, product), headers, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("mtn token request returned %d", status)
	}
	token := stringField(body, "access_token")
	if token == "" {
		return "", fmt.Errorf("mtn token response missing access_token")
	}
	return token, nil
}

func (g *MTNGateway) headers(token, referenceID string) map[string]string {
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Reference-Id":            referenceID,
		"X-Target-Environment":      g.environment,
		"Ocp-Apim-Subscription-Key": g.subscriptionKey,
	}
}

// Payin sends a requesttopay; the rider approves it on their handset, so
// the immediate outcome is always pending.
func (g *MTNGateway) Payin(ctx context.Context, req PayinRequest) (*Result, error) {
	token, err := g.token(ctx, "collection")
	if err != nil {
		return nil, err
	}

	referenceID := uuid.New().String()
	payload := map[string]interface{}{
		"amount":       strconv.FormatFloat(req.Amount, 'f', 0, 64),
		"currency":     req.Currency,
		"externalId":   req.Reference,
		"payer":        map[string]string{"partyIdType": "MSISDN", "partyId": req.PhoneNumber},
		"payerMessage": req.Description,
		"payeeNote":    req.Description,
	}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/collection/v1_0/requesttopay", g.headers(token, referenceID), payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusAccepted {
		msg := stringField(body, "message", "error")
		utils.GetLogger().Warn("MTN requesttopay rejected", zap.Int("status", status), zap.String("message", msg))
		return &Result{Success: false, Message: msg, Status: "FAILED", APIResponse: body}, nil
	}
	return &Result{Success: true, TransactionID: referenceID, Status: "PENDING", APIResponse: body}, nil
}

func (g *MTNGateway) Payout(ctx context.Context, req PayoutRequest) (*Result, error) {
	token, err := g.token(ctx, "disbursement")
	if err != nil {
		return nil, err
	}

	referenceID := uuid.New().String()
	payload := map[string]interface{}{
		"amount":       strconv.FormatFloat(req.Amount, 'f', 0, 64),
		"currency":     req.Currency,
		"externalId":   req.Reference,
		"payee":        map[string]string{"partyIdType": "MSISDN", "partyId": req.PhoneNumber},
		"payerMessage": req.Description,
		"payeeNote":    req.Description,
	}

	status, body, err := doJSON(ctx, http.MethodPost, g.baseURL+"/disbursement/v1_0/transfer", g.headers(token, referenceID), payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusAccepted {
		msg := stringField(body, "message", "error")
		return &Result{Success: false, Message: msg, Status: "FAILED", APIResponse: body}, nil
	}
	return &Result{Success: true, TransactionID: referenceID, Status: "PENDING", APIResponse: body}, nil
}

// Refund reverses a collection by disbursing back to the payer.
func (g *MTNGateway) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	return g.Payout(ctx, PayoutRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		PhoneNumber: req.PhoneNumber,
		Reference:   req.Reference,
		Description: "Rideka refund",
	})
}

func (g *MTNGateway) CheckPayment(ctx context.Context, transactionID string) (*Result, error) {
	return g.check(ctx, "collection", "requesttopay", transactionID)
}

func (g *MTNGateway) CheckPayoutStatus(ctx context.Context, transactionID string) (*Result, error) {
	return g.check(ctx, "disbursement", "transfer", transactionID)
}

func (g *MTNGateway) check(ctx context.Context, product, resource, transactionID string) (*Result, error) {
	token, err := g.token(ctx, product)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/v1_0/%s/%s", g.baseURL, product, resource, transactionID)
	status, body, err := doJSON(ctx, http.MethodGet, url, g.headers(token, transactionID), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return &Result{Success: false, Message: stringField(body, "message"), Status: "PENDING", APIResponse: body}, nil
	}
	native := stringField(body, "status")
	return &Result{
		Success:       native == "SUCCESSFUL",
		Message:       stringField(body, "reason", "message"),
		TransactionID: transactionID,
		Status:        native,
		APIResponse:   body,
	}, nil
}
