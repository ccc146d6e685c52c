package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs one structured record per request. Client errors log at warn,
// server errors at error. Streamed bodies are logged when headers are sent,
// not when the stream ends.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(LocalRequestID).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if userID, _ := c.Locals(LocalUserID).(string); userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}

		switch {
		case status >= 500:
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
		case status >= 400:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
