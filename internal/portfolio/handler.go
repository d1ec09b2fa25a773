package portfolio

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/session"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// Wallets resolves which wallet to value.
type Wallets interface {
	Authorize(ctx context.Context, ownerID, walletID string) (wallet.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Handler serves portfolio valuations.
type Handler struct {
	service  *Service
	wallets  Wallets
	sessions session.Store
}

func NewHandler(service *Service, wallets Wallets, sessions session.Store) *Handler {
	return &Handler{service: service, wallets: wallets, sessions: sessions}
}

// Get values a wallet. Without a walletId path parameter the caller's active
// wallet is used, falling back to their newest wallet.
// @Summary      Portfolio
// @Tags         portfolio
// @Produce      json
// @Param        walletId  path  string  false  "Wallet ID"
// @Success      200  {object}  Portfolio
// @Router       /portfolio [get]
// @Router       /wallets/{walletId}/portfolio [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid, _ := c.Locals("user_id").(string)

	state, err := h.sessions.Get(ctx, uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	walletID := c.Params("walletId")
	if walletID == "" {
		walletID = state.ActiveWalletID
	}
	var w wallet.Wallet
	if walletID != "" {
		w, err = h.wallets.Authorize(ctx, uid, walletID)
	} else {
		w, err = h.wallets.GetByOwner(ctx, uid)
	}
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) && c.Params("walletId") == "" {
			return fiber.NewError(http.StatusNotFound, "no wallet yet; create or import one")
		}
		return wallet.StatusError(err)
	}

	p, err := h.service.Value(ctx, w.ID, Options{HideSmallBalances: state.Preferences.HideSmallBalances})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(p)
}
