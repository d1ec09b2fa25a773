package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints. Logout needs a valid
// access token so it is guarded by jwtmw.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, jwtmw fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwtmw, h.Logout)
}
