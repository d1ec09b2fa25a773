package funding

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// Handler exposes HTTP endpoints for buying and selling.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Buy purchases coin with USD.
// @Summary      Buy
// @Tags         funding
// @Accept       json
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Param        request   body  TradeRequest  true  "Trade"
// @Success      201  {object}  TradeResponse
// @Router       /wallets/{walletId}/buy [post]
func (h *Handler) Buy(c *fiber.Ctx) error {
	return h.trade(c, h.service.Buy)
}

// Sell converts coin to USD.
// @Summary      Sell
// @Tags         funding
// @Accept       json
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Param        request   body  TradeRequest  true  "Trade"
// @Success      201  {object}  TradeResponse
// @Router       /wallets/{walletId}/sell [post]
func (h *Handler) Sell(c *fiber.Ctx) error {
	return h.trade(c, h.service.Sell)
}

func (h *Handler) trade(c *fiber.Ctx, run func(ctx context.Context, in TradeInput) (TradeResult, error)) error {
	var req TradeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	result, err := run(c.UserContext(), TradeInput{
		OwnerID:    uid,
		WalletID:   c.Params("walletId"),
		Coin:       req.Coin,
		Amount:     req.Amount,
		USDAmount:  req.USDAmount,
		CardNumber: req.CardNumber,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return c.Status(http.StatusOK).JSON(toResponse(result))
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, ErrPriceUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, wallet.ErrWalletNotFound), errors.Is(err, wallet.ErrNotOwner):
			return wallet.StatusError(err)
		case errors.Is(err, asset.ErrUnknownCoin):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func toResponse(result TradeResult) TradeResponse {
	return TradeResponse{
		TransactionID: result.TransactionID,
		Status:        result.Status,
		Coin:          result.Coin,
		Amount:        result.Amount.String(),
		USDAmount:     result.USDAmount.StringFixed(2),
		Price:         result.Price.String(),
		WalletBalance: result.WalletBalance.String(),
		RampReference: result.RampReference,
	}
}
