package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/funding"
)

// RegisterFundingRoutes wires simulated buy/sell endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallets/:walletId/buy", h.Buy)
	r.Post("/wallets/:walletId/sell", h.Sell)
}
