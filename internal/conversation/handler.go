package conversation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the read and create conversation endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a conversation HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

type summaryResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageResponse is the wire form of a message.
type MessageResponse struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"createdAt"`
	MessageType MessageType `json:"messageType"`
}

type detailResponse struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Messages  []MessageResponse `json:"messages"`
}

// List returns the caller's conversations.
func (h *Handler) List(c *fiber.Ctx) error {
	convs, err := h.service.List(c.UserContext(), userID(c))
	if err != nil {
		return h.internal(c, "list conversations", err)
	}
	out := make([]summaryResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, summaryResponse{ID: conv.ID, CreatedAt: conv.CreatedAt})
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Create starts a new conversation.
func (h *Handler) Create(c *fiber.Ctx) error {
	conv, err := h.service.Create(c.UserContext(), userID(c))
	if err != nil {
		if errors.Is(err, ErrOwnerNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		return h.internal(c, "create conversation", err)
	}
	return c.Status(http.StatusOK).JSON(summaryResponse{ID: conv.ID, CreatedAt: conv.CreatedAt})
}

// Get returns a conversation with its messages.
func (h *Handler) Get(c *fiber.Ctx) error {
	conv, msgs, err := h.service.Get(c.UserContext(), c.Params("id"), userID(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "Conversation not found")
		}
		return h.internal(c, "get conversation", err)
	}
	return c.Status(http.StatusOK).JSON(detailResponse{ID: conv.ID, CreatedAt: conv.CreatedAt, Messages: ToResponses(msgs)})
}

// Messages returns the messages of a conversation.
func (h *Handler) Messages(c *fiber.Ctx) error {
	msgs, err := h.service.Messages(c.UserContext(), c.Params("id"), userID(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "Conversation not found")
		}
		return h.internal(c, "list messages", err)
	}
	return c.Status(http.StatusOK).JSON(ToResponses(msgs))
}

// ToResponses converts messages to their wire form.
func ToResponses(msgs []Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageResponse{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt, MessageType: m.Type})
	}
	return out
}

func (h *Handler) internal(c *fiber.Ctx, op string, err error) error {
	h.logger.Error(op, slog.String("path", c.Path()), slog.Any("error", err))
	return fiber.NewError(http.StatusInternalServerError, "internal error")
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
