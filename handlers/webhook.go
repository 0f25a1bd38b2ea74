package handlers

import (
	"errors"
	"net/http"

	"rideka/database/repository"
	"rideka/models"
	"rideka/services/gateway"
	"rideka/services/orchestration"
	"rideka/services/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives provider callbacks. Providers redeliver
// aggressively and their payloads drift, so parsing is defensive and the
// response is 200 whenever the notification was understood, even if the
// payment is not (yet) known: the reconciliation sweep covers what a webhook
// misses.
type WebhookHandler struct {
	Payments     payment.PaymentService
	Orchestrator orchestration.Orchestrator
	Logger       *zap.Logger
}

func NewWebhookHandler(payments payment.PaymentService, orch orchestration.Orchestrator, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Payments: payments, Orchestrator: orch, Logger: logger}
}

// MTNWebhookHandler handles MTN MoMo requesttopay callbacks.
func (h *WebhookHandler) MTNWebhookHandler(c *gin.Context) {
	h.handle(c, models.ProviderMTN,
		[]string{"financialTransactionId", "referenceId"},
		[]string{"externalId", "referenceId"},
		[]string{"status"})
}

// OrangeWebhookHandler handles Orange Money payment notifications.
func (h *WebhookHandler) OrangeWebhookHandler(c *gin.Context) {
	h.handle(c, models.ProviderOrange,
		[]string{"txnid", "pay_token"},
		[]string{"order_id", "reference"},
		[]string{"status"})
}

// PawaPayWebhookHandler handles pawaPay deposit callbacks.
func (h *WebhookHandler) PawaPayWebhookHandler(c *gin.Context) {
	h.handle(c, models.ProviderPawaPay,
		[]string{"depositId", "providerTransactionId"},
		[]string{"depositId"},
		[]string{"status"})
}

// handle extracts the transaction reference and native status from the
// callback body, resolves the payment and feeds the mapped status through
// the orchestrator.
func (h *WebhookHandler) handle(c *gin.Context, provider string, txnKeys, refKeys, statusKeys []string) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.Logger.Warn("Unparseable webhook body",
			zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	txnID := firstString(body, txnKeys...)
	paymentID := firstString(body, refKeys...)
	nativeStatus := firstString(body, statusKeys...)
	if nativeStatus == "" {
		h.Logger.Warn("Webhook without status field",
			zap.String("provider", provider), zap.Any("body", body))
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing status"})
		return
	}

	p, err := h.resolvePayment(c, txnID, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.Logger.Info("Webhook for unknown payment, leaving it to reconciliation",
				zap.String("provider", provider),
				zap.String("transactionId", txnID),
				zap.String("reference", paymentID))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.Logger.Error("Webhook payment lookup failed",
			zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	if p.TransactionID == "" && txnID != "" {
		if err := h.Payments.SetTransactionID(c.Request.Context(), p.ID, txnID); err != nil {
			h.Logger.Error("Failed to backfill transaction id from webhook",
				zap.String("paymentId", p.ID), zap.Error(err))
		}
	}

	next := gateway.MapStatus(provider, nativeStatus)
	if err := h.Orchestrator.HandleStatusChange(c.Request.Context(), p, next,
		map[string]string{"provider_status": nativeStatus, "source": "webhook"}); err != nil {
		var invalid *payment.InvalidTransitionError
		if errors.As(err, &invalid) {
			// A late or out-of-order delivery; the record already moved on.
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.Logger.Error("Webhook status change failed",
			zap.String("paymentId", p.ID), zap.String("next", next), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) resolvePayment(c *gin.Context, txnID, paymentID string) (*models.Payment, error) {
	ctx := c.Request.Context()
	if txnID != "" {
		p, err := h.Payments.GetByTransactionID(ctx, txnID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if paymentID != "" {
		return h.Payments.GetByID(ctx, paymentID)
	}
	return nil, repository.ErrNotFound
}

// firstString returns the first present, non-empty string value among keys.
func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
