package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/auth"
	"github.com/cryptovault/cryptovault/internal/identity"
)

// TokenVerifier validates access tokens, including revocation by logout.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (auth.Claims, error)
}

// JWTAuth returns a middleware that validates bearer access tokens and stores
// the caller in c.Locals("user_id").
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := verifier.Verify(c.UserContext(), tokenStr)
		if err != nil {
			if identity.Code(err) != "" {
				return fiber.NewError(http.StatusUnauthorized, identity.FriendlyMessage(err))
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("token_version", claims.Version)
		return c.Next()
	}
}
