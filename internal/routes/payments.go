package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/payments"
)

// RegisterPaymentRoutes wires send, deposit and swap endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallets/:walletId/send", h.Send)
	r.Post("/wallets/:walletId/deposit", h.Deposit)
	r.Post("/wallets/:walletId/swap", h.Swap)
	r.Post("/swap/quote", h.QuoteSwap)
}
