package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/walletchat/walletchat/internal/auth"
)

// Locals keys set by RequireSession.
const (
	LocalUserID = "user_id"
	LocalWallet = "wallet"
)

// RequireSession rejects requests without a valid session token. The token is
// read from the session cookie, then from an Authorization bearer header.
func RequireSession(sessions *auth.Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(auth.CookieName)
		if token == "" {
			if authz := c.Get(fiber.HeaderAuthorization); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
				token = strings.TrimSpace(authz[7:])
			}
		}
		claims, err := sessions.Parse(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
		}
		c.Locals(LocalUserID, claims.ID)
		c.Locals(LocalWallet, claims.Wallet)
		return c.Next()
	}
}
