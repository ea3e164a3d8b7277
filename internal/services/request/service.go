package request

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	requestIDLocalKey  = "request_id"
	maxRequestIDLength = 256
)

// Service extracts or generates per-request IDs used to prefix log lines
// and stamp execution records.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) sanitizeRequestID(reqID string) string {
	sanitized := strings.TrimSpace(reqID)
	if len(sanitized) > maxRequestIDLength {
		sanitized = sanitized[:maxRequestIDLength]
	}
	return sanitized
}

// RequestID returns the request's ID, preferring a cached value, then the
// X-Request-ID header, generating a fresh one otherwise. The result is
// cached in fiber locals.
func (s *Service) RequestID(c *fiber.Ctx) string {
	if cachedID := c.Locals(requestIDLocalKey); cachedID != nil {
		if str, ok := cachedID.(string); ok && str != "" {
			return str
		}
	}

	var requestID string
	if headerID := c.Get("X-Request-ID"); headerID != "" {
		requestID = s.sanitizeRequestID(headerID)
	}
	if requestID == "" {
		requestID = s.GenerateRequestID()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

// GenerateRequestID creates a new random request ID.
func (s *Service) GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}
