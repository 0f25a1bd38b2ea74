package handlers

import (
	"errors"
	"net/http"

	"rideka/database/repository"
	"rideka/services/booking"
	"rideka/services/payout"
	"rideka/services/refund"

	"github.com/gin-gonic/gin"

	"rideka/utils"
)

// respondServiceError maps service-layer errors to HTTP responses so every
// handler reports failures the same way.
func respondServiceError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
		return
	}

	var be *booking.BookingError
	if errors.As(err, &be) {
		status := http.StatusBadRequest
		switch be.Code {
		case booking.CodeNotBookingOwner:
			status = http.StatusForbidden
		case booking.CodeSeatsUnavailable, booking.CodeRideCancelled,
			booking.CodeAlreadyVerified, booking.CodeBookingNotActive,
			booking.CodeSeatReduction:
			status = http.StatusConflict
		}
		utils.JSONError(c, status, be.Code, be.Message)
		return
	}

	switch {
	case errors.Is(err, refund.ErrNotBookingOwner), errors.Is(err, payout.ErrNotRideDriver):
		utils.JSONError(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, refund.ErrInvalidSeatCount):
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, payout.ErrInvalidCode):
		utils.JSONError(c, http.StatusUnprocessableEntity, "verification failed", err.Error())
	case errors.Is(err, refund.ErrNothingToRefund), errors.Is(err, refund.ErrBookingNotPaid),
		errors.Is(err, refund.ErrBookingNotActive), errors.Is(err, refund.ErrSeatsNotReducible),
		errors.Is(err, payout.ErrBookingNotPaid), errors.Is(err, payout.ErrNothingToDisburse):
		utils.JSONError(c, http.StatusConflict, "conflict", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}

// authenticatedUserID returns the user id set by the auth middleware.
func authenticatedUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("userID")
	if !exists {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return "", false
	}
	return id, true
}
