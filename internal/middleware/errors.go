package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error as {"message": ...}. Errors that are not
// *fiber.Error are logged and reported as a bare 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}
