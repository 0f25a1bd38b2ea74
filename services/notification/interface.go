package notification

import (
	"context"
	"fmt"

	userRepo "rideka/database/repository/user"
	"rideka/utils"

	"firebase.google.com/go/v4/messaging"
)

// NotificationService defines methods for sending FCM pushes. Every call is
// best-effort: callers inspect errors only for logging, never for control
// flow.
type NotificationService interface {
	SendRiderPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error
	SendDriverPushNotification(ctx context.Context, driverID, title, body string, data map[string]string) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Users userRepo.UserRepository
}

func NewDefaultNotificationService(users userRepo.UserRepository) (*DefaultNotificationService, error) {
	if users == nil {
		return nil, fmt.Errorf("notification service initialization error: user repository is nil")
	}
	return &DefaultNotificationService{Users: users}, nil
}

// SendRiderPushNotification looks up a rider's FCM token and sends a push.
func (s *DefaultNotificationService) SendRiderPushNotification(
	ctx context.Context,
	userID, title, body string,
	data map[string]string,
) error {
	return s.send(ctx, userID, "rider", title, body, data)
}

// SendDriverPushNotification sends a high-priority push to a driver.
func (s *DefaultNotificationService) SendDriverPushNotification(
	ctx context.Context,
	driverID, title, body string,
	data map[string]string,
) error {
	return s.send(ctx, driverID, "driver", title, body, data)
}

func (s *DefaultNotificationService) send(ctx context.Context, userID, role, title, body string, data map[string]string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("notification: could not find user %s: %w", userID, err)
	}
	if u.FCMToken == "" {
		return fmt.Errorf("notification: user %s has no FCM token", userID)
	}

	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = role
	}

	msg := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("notification: failed to send FCM message: %w", err)
	}
	return nil
}
