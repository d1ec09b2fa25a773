package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/alerts"
	"github.com/cryptovault/cryptovault/internal/history"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/portfolio"
	"github.com/cryptovault/cryptovault/internal/session"
)

// RegisterSessionRoutes wires session state, preferences and the notification inbox.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler, inbox *notification.Handler) {
	r.Get("/session", h.Get)
	r.Put("/session/preferences", h.UpdatePreferences)
	r.Get("/notifications", inbox.Drain)
}

func RegisterPortfolioRoutes(r fiber.Router, h *portfolio.Handler) {
	r.Get("/portfolio", h.Get)
	r.Get("/wallets/:walletId/portfolio", h.Get)
}

func RegisterHistoryRoutes(r fiber.Router, h *history.Handler) {
	r.Get("/wallets/:walletId/transactions", h.List)
}

// RegisterAlertRoutes wires price alert endpoints. /alerts/suggest is
// registered before /alerts/:alertId.
func RegisterAlertRoutes(r fiber.Router, h *alerts.Handler) {
	r.Get("/alerts/suggest", h.Suggest)
	r.Post("/alerts", h.Create)
	r.Get("/alerts", h.List)
	r.Delete("/alerts/:alertId", h.Delete)
}
