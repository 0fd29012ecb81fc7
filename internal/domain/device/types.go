package device

import "time"

// Config drives device token signing.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// TokenRequest captures the token issue payload.
type TokenRequest struct {
	DeviceID string `json:"device_id"`
}

// Token is a signed device credential.
type Token struct {
	Token     string    `json:"token"`
	DeviceID  string    `json:"device_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
