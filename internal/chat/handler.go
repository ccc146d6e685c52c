package chat

import (
	"bufio"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/walletchat/walletchat/internal/assistant"
	"github.com/walletchat/walletchat/internal/conversation"
)

// Handler streams AI replies over HTTP.
type Handler struct {
	orch   *Orchestrator
	logger *slog.Logger
}

// NewHandler constructs the chat HTTP handler.
func NewHandler(orch *Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orch: orch, logger: logger}
}

type sendRequest struct {
	Content string `json:"content"`
}

// Send stores the user's message and streams the reply as text/plain.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return fiber.NewError(http.StatusBadRequest, "content is required")
	}
	userID, _ := c.Locals("user_id").(string)
	conversationID := utils.CopyString(c.Params("id"))

	ex, err := h.orch.Begin(c.UserContext(), conversationID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "Conversation not found")
		case errors.Is(err, conversation.ErrEmptyContent):
			return fiber.NewError(http.StatusBadRequest, "content is required")
		case errors.Is(err, assistant.ErrDisabled):
			return fiber.NewError(http.StatusServiceUnavailable, "AI responses are disabled")
		}
		h.logger.Error("start reply", slog.String("conversation_id", conversationID), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "failed to generate response")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// The fiber.Ctx is recycled once Send returns; the writer only touches captured values.
	logger := h.logger
	conn := c.Context().Conn()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if _, err := ex.Relay(w); err != nil {
			logger.Warn("reply stream aborted", slog.String("conversation_id", conversationID), slog.Any("error", err))
			// Drop the connection before the terminating chunk so the client sees a truncated body.
			if conn != nil {
				_ = conn.Close()
			}
		}
	})
	return nil
}
