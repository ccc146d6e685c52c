package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type meResponse struct {
	ID     string `json:"id"`
	Wallet string `json:"wallet"`
}

// Me returns the user bound to the current session.
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	user, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		return fiber.NewError(http.StatusInternalServerError, "failed to load user")
	}
	return c.Status(http.StatusOK).JSON(meResponse{ID: user.ID, Wallet: user.Wallet})
}
