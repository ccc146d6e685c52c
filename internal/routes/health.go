package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const statusDisabled = "disabled"

// RegisterHealthRoutes adds a readiness endpoint covering the external stores.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := statusDisabled
		redisStatus := statusDisabled

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if !healthy(dbStatus) || !healthy(redisStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"assistant": d.Cfg.AssistantEnabled() || d.Model != nil,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func healthy(s string) bool {
	return s == "ok" || s == statusDisabled
}
