package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	// LocalRequestID is the Locals key holding the request id.
	LocalRequestID = "request_id"
)

// RequestID propagates the caller's X-Request-ID or mints one, echoing it on
// the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(LocalRequestID, reqID)
		return c.Next()
	}
}
