package handlers

import (
	"net/http"
	"time"

	"rideka/config"
	rideRepo "rideka/database/repository/ride"
	"rideka/models"
	"rideka/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RideHandler exposes ride publishing and lookup for drivers.
type RideHandler struct {
	Rides  rideRepo.RideRepository
	Logger *zap.Logger
}

func NewRideHandler(rides rideRepo.RideRepository, logger *zap.Logger) *RideHandler {
	return &RideHandler{Rides: rides, Logger: logger}
}

// CreateRideHandler publishes a ride for the authenticated driver.
func (h *RideHandler) CreateRideHandler(c *gin.Context) {
	driverID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var input struct {
		Origin        string               `json:"origin" binding:"required"`
		Destination   string               `json:"destination" binding:"required"`
		PricePerSeat  float64              `json:"price_per_seat" binding:"required"`
		Currency      string               `json:"currency"`
		Seats         int                  `json:"seats" binding:"required"`
		DepartureTime time.Time            `json:"departure_time" binding:"required"`
		PickupPoints  []models.PickupPoint `json:"pickup_points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if input.Seats <= 0 || input.PricePerSeat <= 0 {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "seats and price_per_seat must be positive")
		return
	}
	if len(input.PickupPoints) == 0 {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "at least one pickup point is required")
		return
	}
	if input.Currency == "" {
		input.Currency = config.AppConfig.DefaultCurrency
	}

	ride := &models.Ride{
		ID:             uuid.New().String(),
		DriverID:       driverID,
		Origin:         input.Origin,
		Destination:    input.Destination,
		PricePerSeat:   input.PricePerSeat,
		Currency:       input.Currency,
		SeatsAvailable: input.Seats,
		DepartureTime:  input.DepartureTime,
		PickupPoints:   input.PickupPoints,
		Status:         models.RideStatusActive,
	}
	if err := h.Rides.Create(c.Request.Context(), ride); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ride": ride})
}

// GetRideHandler returns one ride.
func (h *RideHandler) GetRideHandler(c *gin.Context) {
	ride, err := h.Rides.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

// CancelRideHandler takes a ride off the market. Existing bookings are not
// touched here; riders cancel (and get refunded) through the booking
// endpoints.
func (h *RideHandler) CancelRideHandler(c *gin.Context) {
	driverID, ok := authenticatedUserID(c)
	if !ok {
		return
	}
	ride, err := h.Rides.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if ride.DriverID != driverID {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "ride belongs to another driver")
		return
	}
	if err := h.Rides.UpdateStatus(c.Request.Context(), ride.ID, models.RideStatusCancelled); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}
