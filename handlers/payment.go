package handlers

import (
	"fmt"
	"net/http"

	"rideka/config"
	"rideka/models"
	"rideka/services/gateway"
	"rideka/services/orchestration"
	"rideka/services/payment"
	"rideka/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler exposes payment initiation and lookup.
type PaymentHandler struct {
	Payments     payment.PaymentService
	Gateways     *gateway.Registry
	Orchestrator orchestration.Orchestrator
	Logger       *zap.Logger
}

func NewPaymentHandler(payments payment.PaymentService, gateways *gateway.Registry, orch orchestration.Orchestrator, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Gateways: gateways, Orchestrator: orch, Logger: logger}
}

// CreatePaymentHandler records a payment attempt and starts the provider
// collection. The idempotency key makes the whole endpoint replay-safe: a
// retried request returns the payment already in flight without contacting
// the provider again.
func (h *PaymentHandler) CreatePaymentHandler(c *gin.Context) {
	if _, ok := authenticatedUserID(c); !ok {
		return
	}

	var input struct {
		BookingID      string  `json:"booking_id" binding:"required"`
		Amount         float64 `json:"amount" binding:"required"`
		Currency       string  `json:"currency"`
		Provider       string  `json:"provider" binding:"required"`
		PhoneNumber    string  `json:"phone_number" binding:"required"`
		IdempotencyKey string  `json:"idempotency_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if input.Currency == "" {
		input.Currency = config.AppConfig.DefaultCurrency
	}

	ctx := c.Request.Context()
	p, err := h.Payments.Create(ctx, payment.CreatePaymentRequest{
		BookingID:      input.BookingID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		Provider:       input.Provider,
		PhoneNumber:    input.PhoneNumber,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// A replayed key lands on a payment whose collection already started
	// (or finished). Never initiate twice.
	if p.Status != models.PaymentStatusPending || p.TransactionID != "" {
		c.JSON(http.StatusOK, gin.H{"payment": p})
		return
	}

	gw, err := h.Gateways.For(p.Provider)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	res, err := gw.Payin(ctx, gateway.PayinRequest{
		Amount:      p.Amount,
		Currency:    p.Currency,
		PhoneNumber: p.PhoneNumber,
		Reference:   p.ID,
		Description: fmt.Sprintf("Ride booking %s", p.BookingID),
	})
	if err != nil || !res.Success {
		reason := "provider initiation failed"
		if err != nil {
			reason = err.Error()
		} else if res.Message != "" {
			reason = res.Message
		}
		h.Logger.Warn("Payment initiation failed",
			zap.String("paymentId", p.ID), zap.String("reason", reason))
		if herr := h.Orchestrator.HandleStatusChange(ctx, p, models.PaymentStatusFailed,
			map[string]string{"failure_reason": reason}); herr != nil {
			h.Logger.Error("Failed to record initiation failure",
				zap.String("paymentId", p.ID), zap.Error(herr))
		}
		utils.JSONError(c, http.StatusBadGateway, "payment initiation failed", reason)
		return
	}

	if res.TransactionID != "" {
		if err := h.Payments.SetTransactionID(ctx, p.ID, res.TransactionID); err != nil {
			h.Logger.Error("Failed to store payment transaction id",
				zap.String("paymentId", p.ID), zap.Error(err))
		}
	}

	next := gateway.MapStatus(p.Provider, res.Status)
	if next != models.PaymentStatusCompleted {
		next = models.PaymentStatusProcessing
	}
	if err := h.Orchestrator.HandleStatusChange(ctx, p, next,
		map[string]string{"provider_status": res.Status, "source": "initiation"}); err != nil {
		h.Logger.Error("Failed to apply initiation status",
			zap.String("paymentId", p.ID), zap.Error(err))
	}

	updated, err := h.Payments.GetByID(ctx, p.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"payment": updated})
}

// GetPaymentHandler returns one payment record.
func (h *PaymentHandler) GetPaymentHandler(c *gin.Context) {
	if _, ok := authenticatedUserID(c); !ok {
		return
	}
	p, err := h.Payments.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}
