package util

import (
	"time"

	"github.com/google/uuid"
)

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// NewID returns a random identifier for trips, ports and plans.
func NewID() string {
	return uuid.NewString()
}
