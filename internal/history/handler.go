package history

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/wallet"
)

// WalletAuthorizer resolves a wallet owned by the caller.
type WalletAuthorizer interface {
	Authorize(ctx context.Context, ownerID, walletID string) (wallet.Wallet, error)
}

// Handler exposes wallet history.
type Handler struct {
	service *Service
	wallets WalletAuthorizer
}

func NewHandler(service *Service, wallets WalletAuthorizer) *Handler {
	return &Handler{service: service, wallets: wallets}
}

// List returns a wallet's transactions.
// @Summary      Transaction history
// @Tags         history
// @Produce      json
// @Param        walletId  path   string  true   "Wallet ID"
// @Param        type      query  string  false  "send, receive, swap, buy or sell"
// @Param        coin      query  string  false  "Coin symbol"
// @Param        status    query  string  false  "completed, pending or failed"
// @Param        from      query  string  false  "RFC3339 lower bound"
// @Param        to        query  string  false  "RFC3339 upper bound"
// @Param        min       query  string  false  "Minimum amount"
// @Param        max       query  string  false  "Maximum amount"
// @Param        onchain   query  bool    false  "Merge on-chain transfers"
// @Success      200  {array}  Record
// @Router       /wallets/{walletId}/transactions [get]
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.wallets.Authorize(c.UserContext(), uid, c.Params("walletId"))
	if err != nil {
		return wallet.StatusError(err)
	}

	f := Filter{
		Type:   c.Query("type"),
		Coin:   c.Query("coin"),
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", DefaultLimit),
	}
	if f.From, err = parseTime(c.Query("from")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "from must be RFC3339")
	}
	if f.To, err = parseTime(c.Query("to")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "to must be RFC3339")
	}
	if f.MinAmount, err = parseAmount(c.Query("min")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "min must be a number")
	}
	if f.MaxAmount, err = parseAmount(c.Query("max")); err != nil {
		return fiber.NewError(http.StatusBadRequest, "max must be a number")
	}

	in := ListInput{WalletID: w.ID, Filter: f}
	if c.QueryBool("onchain") {
		in.Address = w.EVMAddress
	}
	records, err := h.service.List(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []Record{}
	}
	return c.JSON(records)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseAmount(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
