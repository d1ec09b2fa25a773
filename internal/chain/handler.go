package chain

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/wallet"
)

// WalletAuthorizer resolves a caller-owned wallet.
type WalletAuthorizer interface {
	Authorize(ctx context.Context, ownerID, walletID string) (wallet.Wallet, error)
}

// Handler exposes on-chain reads.
type Handler struct {
	reader  *Reader
	wallets WalletAuthorizer
}

func NewHandler(reader *Reader, wallets WalletAuthorizer) *Handler {
	return &Handler{reader: reader, wallets: wallets}
}

// OnChainResponse is the live view of a wallet's EVM address.
type OnChainResponse struct {
	Address string                     `json:"address"`
	ETH     decimal.Decimal            `json:"eth"`
	Tokens  map[string]decimal.Decimal `json:"tokens"`
}

// Balances reads the wallet address's ether and ERC-20 balances.
// @Summary      On-chain balances
// @Tags         chain
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Success      200  {object}  OnChainResponse
// @Router       /wallets/{walletId}/onchain [get]
func (h *Handler) Balances(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.wallets.Authorize(c.UserContext(), uid, c.Params("walletId"))
	if err != nil {
		return wallet.StatusError(err)
	}
	return c.JSON(OnChainResponse{
		Address: w.EVMAddress,
		ETH:     h.reader.ETHBalance(c.UserContext(), w.EVMAddress),
		Tokens:  h.reader.TokenBalances(c.UserContext(), w.EVMAddress),
	})
}

// Gas returns the current gas price tiers in gwei.
// @Summary      Gas price
// @Tags         chain
// @Produce      json
// @Success      200  {object}  GasPrice
// @Router       /chain/gas [get]
func (h *Handler) Gas(c *fiber.Ctx) error {
	return c.JSON(h.reader.GasPrice(c.UserContext()))
}
