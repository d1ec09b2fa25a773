package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/market"
)

// RegisterMarketRoutes wires public price endpoints.
func RegisterMarketRoutes(r fiber.Router, h *market.Handler) {
	group := r.Group("/market")
	group.Get("/prices", h.List)
	group.Get("/prices/:symbol", h.Get)
	group.Get("/rate", h.Rate)
	group.Get("/chart/:symbol", h.Chart)
}
