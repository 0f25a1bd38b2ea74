package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct for route
// registration.
type HandlerBundle struct {
	// Ride endpoints.
	CreateRideHandler gin.HandlerFunc
	GetRideHandler    gin.HandlerFunc
	CancelRideHandler gin.HandlerFunc

	// Booking endpoints.
	CreateBookingHandler gin.HandlerFunc
	GetBookingHandler    gin.HandlerFunc
	CancelBookingHandler gin.HandlerFunc
	ChangeSeatsHandler   gin.HandlerFunc
	VerifyCodeHandler    gin.HandlerFunc

	// Payment endpoints.
	CreatePaymentHandler gin.HandlerFunc
	GetPaymentHandler    gin.HandlerFunc

	// Provider webhooks.
	MTNWebhookHandler     gin.HandlerFunc
	OrangeWebhookHandler  gin.HandlerFunc
	PawaPayWebhookHandler gin.HandlerFunc
}
