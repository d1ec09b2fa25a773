package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendRequest struct {
	Coin       string `json:"coin"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

type depositRequest struct {
	Coin       string `json:"coin"`
	Amount     string `json:"amount"`
	From       string `json:"from"`
	ClientTxID string `json:"client_tx_id"`
}

type swapRequest struct {
	From       string           `json:"from"`
	To         string           `json:"to"`
	Amount     string           `json:"amount"`
	Slippage   *decimal.Decimal `json:"slippage"`
	ClientTxID string           `json:"client_tx_id"`
}

// Send transfers coin to an address.
// @Summary      Send
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Router       /wallets/{walletId}/send [post]
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	res, err := h.service.Send(c.UserContext(), SendInput{
		OwnerID:    uid,
		WalletID:   c.Params("walletId"),
		Coin:       req.Coin,
		To:         req.To,
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": res.Record,
		"balance":     res.Balance.String(),
		"internal":    res.Internal,
	})
}

// Deposit simulates an incoming transfer.
// @Summary      Simulate deposit
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Router       /wallets/{walletId}/deposit [post]
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	rec, err := h.service.SimulateDeposit(c.UserContext(), DepositInput{
		OwnerID:    uid,
		WalletID:   c.Params("walletId"),
		Coin:       req.Coin,
		Amount:     req.Amount,
		From:       req.From,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(rec)
}

// QuoteSwap prices a swap without executing it.
// @Summary      Swap quote
// @Tags         payments
// @Accept       json
// @Produce      json
// @Success      200  {object}  SwapQuote
// @Router       /swap/quote [post]
func (h *Handler) QuoteSwap(c *fiber.Ctx) error {
	var req swapRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	q, err := h.service.QuoteSwap(c.UserContext(), SwapInput{From: req.From, To: req.To, Amount: req.Amount, Slippage: req.Slippage})
	if err != nil {
		return statusError(err)
	}
	return c.JSON(q)
}

// Swap exchanges one holding for another.
// @Summary      Swap
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Router       /wallets/{walletId}/swap [post]
func (h *Handler) Swap(c *fiber.Ctx) error {
	var req swapRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Swap(c.UserContext(), SwapInput{
		OwnerID:    uid,
		WalletID:   c.Params("walletId"),
		From:       req.From,
		To:         req.To,
		Amount:     req.Amount,
		Slippage:   req.Slippage,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"quote":        res.Quote,
		"transaction":  res.Record,
		"from_balance": res.FromBalance.String(),
		"to_balance":   res.ToBalance.String(),
	})
}

func statusError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyAmount), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSameCoin), errors.Is(err, ErrInvalidSlippage),
		errors.Is(err, asset.ErrUnknownCoin),
		errors.Is(err, wallet.ErrEmptyAddress), errors.Is(err, wallet.ErrInvalidAddress):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, "duplicate transaction")
	default:
		return wallet.StatusError(err)
	}
}
