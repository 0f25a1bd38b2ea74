package models

import "time"

// User is the slim account projection the payment core needs: identity,
// contact details for mobile money, and the FCM token for pushes. Account
// management itself lives in the auth provider.
type User struct {
	ID          string    `bson:"id" json:"id"`
	FullName    string    `bson:"full_name" json:"full_name"`
	PhoneNumber string    `bson:"phone_number" json:"phone_number"`
	FCMToken    string    `bson:"fcm_token,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
