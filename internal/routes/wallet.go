package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/chain"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, onchain *chain.Handler) {
	r.Post("/wallets", h.Create)
	r.Post("/wallets/import", h.Import)
	r.Get("/wallets", h.List)
	r.Post("/wallets/:walletId/activate", h.Activate)
	r.Get("/wallets/:walletId/balances", h.Balances)
	r.Get("/wallets/:walletId/receive/:coin", h.Receive)
	r.Post("/wallets/:walletId/reveal", h.Reveal)
	r.Get("/wallets/:walletId/onchain", onchain.Balances)
	r.Get("/chain/gas", onchain.Gas)
}
