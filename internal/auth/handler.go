package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/walletchat/walletchat/internal/authmsg"
)

// CookieName carries the session token.
const CookieName = "accessToken"

// Handler exposes the challenge/login/logout endpoints.
type Handler struct {
	svc          *Service
	secureCookie bool
	logger       *slog.Logger
}

// NewHandler builds the auth HTTP handler. secureCookie sets the Secure flag
// on the session cookie.
func NewHandler(svc *Service, secureCookie bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, secureCookie: secureCookie, logger: logger}
}

type challengeResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresAt string `json:"expiresAt"`
}

// Challenge issues a login nonce.
func (h *Handler) Challenge(c *fiber.Ctx) error {
	ch, err := h.svc.RequestChallenge(c.UserContext())
	if err != nil {
		h.logger.Error("issue challenge", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "failed to issue challenge")
	}
	return c.Status(http.StatusOK).JSON(challengeResponse{Nonce: ch.Nonce, ExpiresAt: authmsg.FormatTime(ch.ExpiresAt)})
}

type loginRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

var loginErrors = []struct {
	err     error
	message string
}{
	{ErrChallengeNotFound, "Challenge not found"},
	{ErrChallengeExpired, "Challenge expired"},
	{ErrInvalidNonce, "Invalid nonce"},
	{ErrInvalidAddress, "Invalid address"},
	{ErrInvalidSignature, "Invalid signature"},
}

// Login verifies the signed challenge and sets the session cookie.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Address == "" || req.Message == "" || req.Nonce == "" || req.Signature == "" {
		return fiber.NewError(http.StatusBadRequest, "address, message, nonce and signature are required")
	}

	session, err := h.svc.Login(c.UserContext(), LoginInput{
		Address:   req.Address,
		Message:   req.Message,
		Nonce:     req.Nonce,
		Signature: req.Signature,
	})
	if err != nil {
		for _, le := range loginErrors {
			if errors.Is(err, le.err) {
				return fiber.NewError(http.StatusUnauthorized, le.message)
			}
		}
		h.logger.Error("login failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "login failed")
	}

	c.Cookie(h.cookie(session.Token, session.ExpiresAt))
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Logged in successfully"})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.cookie("", time.Unix(0, 0)))
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *Handler) cookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
