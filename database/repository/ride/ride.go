package rideRepo

import (
	"context"

	"rideka/models"
)

// RideRepository defines the interface for ride data access. Seat capacity
// is never written through this interface; capacity changes go through the
// booking repository's atomic primitives.
type RideRepository interface {
	GetByID(ctx context.Context, id string) (*models.Ride, error)
	Create(ctx context.Context, ride *models.Ride) error
	UpdateStatus(ctx context.Context, id, status string) error
}
