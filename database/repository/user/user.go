package userRepo

import (
	"context"

	"rideka/models"
)

// UserRepository exposes the account projection the payment core reads:
// phone numbers for mobile money and FCM tokens for pushes.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
