package handlers

import (
	"errors"
	"net/http"

	"rideka/services/booking"
	"rideka/services/payout"
	"rideka/services/refund"
	"rideka/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	Service booking.BookingService
	Refunds refund.RefundService
	Payouts payout.PayoutService
	Logger  *zap.Logger
}

func NewBookingHandler(svc booking.BookingService, refunds refund.RefundService, payouts payout.PayoutService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, Refunds: refunds, Payouts: payouts, Logger: logger}
}

// CreateBookingHandler reserves seats on a ride for the authenticated rider.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var input struct {
		RideID          string `json:"ride_id" binding:"required"`
		Seats           int    `json:"seats" binding:"required"`
		PickupPointName string `json:"pickup_point_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	b, err := h.Service.CreateBooking(c.Request.Context(), booking.CreateBookingRequest{
		RideID:          input.RideID,
		UserID:          userID,
		Seats:           input.Seats,
		PickupPointName: input.PickupPointName,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

// GetBookingHandler returns one booking. Only the booking owner may see it.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if b.UserID != userID {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "booking belongs to another rider")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// CancelBookingHandler cancels a booking; paid bookings go through the
// refund flow behind the same endpoint.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}
	if err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// ChangeSeatsHandler resizes a booking. Growing a paid booking returns the
// additional amount to pay; shrinking one runs the partial refund flow.
func (h *BookingHandler) ChangeSeatsHandler(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}
	bookingID := c.Param("id")

	var input struct {
		Seats int `json:"seats" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	current, err := h.Service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if current.UserID != userID {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "booking belongs to another rider")
		return
	}

	amountDue, err := h.Service.CalculateAdditionalPaymentAmount(c.Request.Context(), bookingID, input.Seats)
	if err != nil {
		var be *booking.BookingError
		if errors.As(err, &be) && be.Code == booking.CodeSeatReduction {
			r, rerr := h.Refunds.ReduceSeatsWithRefund(c.Request.Context(), bookingID, userID, input.Seats)
			if rerr != nil {
				respondServiceError(c, rerr)
				return
			}
			updated, gerr := h.Service.GetBooking(c.Request.Context(), bookingID)
			if gerr != nil {
				respondServiceError(c, gerr)
				return
			}
			c.JSON(http.StatusOK, gin.H{"booking": updated, "refund": r})
			return
		}
		respondServiceError(c, err)
		return
	}

	updated, err := h.Service.CreateBooking(c.Request.Context(), booking.CreateBookingRequest{
		RideID:          current.RideID,
		UserID:          userID,
		Seats:           input.Seats,
		PickupPointName: current.PickupPointName,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": updated, "amount_due": amountDue})
}

// VerifyCodeHandler is the driver-side pickup verification. A valid code
// confirms the booking and releases the driver payout.
func (h *BookingHandler) VerifyCodeHandler(c *gin.Context) {
	driverID, ok := authenticatedUserID(c)
	if !ok {
		return
	}
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	p, err := h.Payouts.VerifyAndRelease(c.Request.Context(), c.Param("id"), driverID, input.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "payout": p})
}
