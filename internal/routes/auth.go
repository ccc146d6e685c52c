package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletchat/walletchat/internal/auth"
	"github.com/walletchat/walletchat/internal/identity"
)

// RegisterAuthRoutes wires the wallet login endpoints and /me.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, me *identity.Handler, rateLimiter, gate fiber.Handler) {
	r.Get("/challenge", h.Challenge)
	if rateLimiter != nil {
		r.Post("/login", rateLimiter, h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	r.Post("/logout", h.Logout)
	r.Get("/me", gate, me.Me)
}
