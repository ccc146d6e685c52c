package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletchat/walletchat/internal/chat"
	"github.com/walletchat/walletchat/internal/conversation"
)

// RegisterConversationRoutes wires conversation CRUD and the streaming reply endpoint.
func RegisterConversationRoutes(r fiber.Router, h *conversation.Handler, ch *chat.Handler, gate, idempotency fiber.Handler) {
	r.Get("/conversations", gate, h.List)
	if idempotency != nil {
		r.Post("/conversations", gate, idempotency, h.Create)
	} else {
		r.Post("/conversations", gate, h.Create)
	}
	r.Get("/conversation/:id", gate, h.Get)
	r.Get("/conversation/:id/messages", gate, h.Messages)
	r.Post("/conversation/:id/messages", gate, ch.Send)
}
