package models

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig configures the request rate limiter.
type RateLimitConfig struct {
	Max        int
	Expiration time.Duration
	KeyFunc    func(*fiber.Ctx) string
}

// TimeoutConfig configures the per-request timeout middleware.
type TimeoutConfig struct {
	Timeout time.Duration
}
