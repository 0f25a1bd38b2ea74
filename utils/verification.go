package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const codeDigits = "0123456789"

// GenerateVerificationCode generates a secure random numeric code of the
// given length. Numeric codes are easy to read out at the pickup point.
func GenerateVerificationCode(length int) (string, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	code := make([]byte, length)
	for i, b := range randomBytes {
		code[i] = codeDigits[int(b)%len(codeDigits)]
	}
	return string(code), nil
}

// CacheVerificationCode mirrors a booking's pickup code in Redis with a TTL
// so status endpoints can show it without a database round trip. The
// authoritative copy lives on the booking row.
func CacheVerificationCode(ctx context.Context, bookingID, code string, ttl time.Duration) error {
	client := GetCodeCacheClient()
	if client == nil {
		return fmt.Errorf("code cache client not initialized")
	}
	key := fmt.Sprintf("vcode:%s", bookingID)
	if err := client.Set(ctx, key, code, ttl).Err(); err != nil {
		GetLogger().Error("Failed to cache verification code", zap.String("bookingId", bookingID), zap.Error(err))
		return err
	}
	return nil
}

// GetCachedVerificationCode returns the cached code for a booking, or empty
// when it has expired or was never cached.
func GetCachedVerificationCode(ctx context.Context, bookingID string) (string, error) {
	client := GetCodeCacheClient()
	if client == nil {
		return "", fmt.Errorf("code cache client not initialized")
	}
	key := fmt.Sprintf("vcode:%s", bookingID)
	code, err := client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to retrieve verification code: %w", err)
	}
	return code, nil
}

// DropCachedVerificationCode removes the cached code after verification.
func DropCachedVerificationCode(ctx context.Context, bookingID string) {
	client := GetCodeCacheClient()
	if client == nil {
		return
	}
	key := fmt.Sprintf("vcode:%s", bookingID)
	if err := client.Del(ctx, key).Err(); err != nil {
		GetLogger().Error("Failed to delete cached verification code", zap.String("bookingId", bookingID), zap.Error(err))
	}
}
