package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/session"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// RegisterWalletMeRoute exposes the caller's active wallet with its holdings.
// The session's wallet reference wins; after logout it is empty and the
// newest wallet is used and re-activated.
func RegisterWalletMeRoute(r fiber.Router, wallets *wallet.Service, sessions session.Store) {
	r.Get("/wallet", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}

		state, err := sessions.Get(ctx, uid)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		var w wallet.Wallet
		if state.ActiveWalletID != "" {
			w, err = wallets.Authorize(ctx, uid, state.ActiveWalletID)
		}
		if state.ActiveWalletID == "" || errors.Is(err, wallet.ErrWalletNotFound) {
			w, err = wallets.GetByOwner(ctx, uid)
			if err == nil {
				err = sessions.SetActiveWallet(ctx, uid, w.ID)
			}
		}
		if err != nil {
			return wallet.StatusError(err)
		}

		holdings, err := wallets.Holdings(ctx, w.ID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]wallet.HoldingResponse, 0, len(holdings))
		for _, h := range holdings {
			out = append(out, wallet.HoldingResponse{Coin: h.Coin, Amount: h.Amount.String(), Units: h.Units})
		}

		return c.Status(http.StatusOK).JSON(fiber.Map{
			"wallet":      wallet.ToResponse(w),
			"holdings":    out,
			"preferences": state.Preferences,
		})
	})
}
