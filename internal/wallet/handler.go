package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/identity"
	"github.com/cryptovault/cryptovault/internal/session"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service  *Service
	sessions session.Store
}

// NewHandler builds a wallet HTTP handler. Created and imported wallets become
// the caller's active wallet in sessions.
func NewHandler(service *Service, sessions session.Store) *Handler {
	return &Handler{service: service, sessions: sessions}
}

type createRequest struct {
	Label string `json:"label"`
}

type importRequest struct {
	Label    string `json:"label"`
	Mnemonic string `json:"mnemonic"`
}

type revealRequest struct {
	Password string `json:"password"`
}

// WalletResponse is the public view of a wallet.
type WalletResponse struct {
	ID            string `json:"id"`
	OwnerID       string `json:"owner_id"`
	Label         string `json:"label"`
	Address       string `json:"address"`
	SolanaAddress string `json:"solana_address"`
	Imported      bool   `json:"imported"`
	CreatedAt     string `json:"created_at"`
}

// HoldingResponse is one coin balance.
type HoldingResponse struct {
	Coin   string `json:"coin"`
	Amount string `json:"amount"`
	Units  int64  `json:"units"`
}

// ToResponse renders w for clients.
func ToResponse(w Wallet) WalletResponse {
	return WalletResponse{
		ID:            w.ID,
		OwnerID:       w.OwnerID,
		Label:         w.Label,
		Address:       w.EVMAddress,
		SolanaAddress: w.SolanaAddress,
		Imported:      w.Imported,
		CreatedAt:     w.CreatedAt.Format(time.RFC3339),
	}
}

// Create provisions a wallet for the authenticated owner.
// @Summary      Create wallet
// @Description  Generates a new key pair wallet with a 12-word recovery phrase
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Success      201  {object}  WalletResponse
// @Router       /wallets [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Create(c.UserContext(), CreateInput{OwnerID: uid, Label: req.Label})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.activate(c, uid, w.ID); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(w))
}

// Import restores a wallet from a recovery phrase.
// @Summary      Import wallet
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Success      201  {object}  WalletResponse
// @Router       /wallets/import [post]
func (h *Handler) Import(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Import(c.UserContext(), ImportInput{OwnerID: uid, Label: req.Label, Mnemonic: req.Mnemonic})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.activate(c, uid, w.ID); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(w))
}

// List returns the caller's wallets.
// @Summary      List wallets
// @Tags         wallets
// @Produce      json
// @Success      200  {array}  WalletResponse
// @Router       /wallets [get]
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	wallets, err := h.service.ListByOwner(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]WalletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, ToResponse(w))
	}
	return c.JSON(out)
}

// Activate switches the caller's active wallet.
// @Summary      Select active wallet
// @Tags         wallets
// @Produce      json
// @Success      200  {object}  WalletResponse
// @Router       /wallets/{walletId}/activate [post]
func (h *Handler) Activate(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Authorize(c.UserContext(), uid, c.Params("walletId"))
	if err != nil {
		return StatusError(err)
	}
	if err := h.activate(c, uid, w.ID); err != nil {
		return err
	}
	return c.JSON(ToResponse(w))
}

// Balances returns every coin holding of a wallet.
// @Summary      Wallet balances
// @Tags         wallets
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Success      200  {array}  HoldingResponse
// @Router       /wallets/{walletId}/balances [get]
func (h *Handler) Balances(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.Authorize(c.UserContext(), uid, c.Params("walletId"))
	if err != nil {
		return StatusError(err)
	}
	holdings, err := h.service.Holdings(c.UserContext(), w.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]HoldingResponse, 0, len(holdings))
	for _, hld := range holdings {
		out = append(out, HoldingResponse{Coin: hld.Coin, Amount: hld.Amount.String(), Units: hld.Units})
	}
	return c.JSON(fiber.Map{"wallet_id": w.ID, "holdings": out})
}

// Receive returns the receive address and QR code for a coin.
// @Summary      Receive address
// @Tags         wallets
// @Produce      json
// @Param        walletId  path  string  true  "Wallet ID"
// @Param        coin      path  string  true  "Coin symbol"
// @Router       /wallets/{walletId}/receive/{coin} [get]
func (h *Handler) Receive(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	info, err := h.service.Receive(c.UserContext(), uid, c.Params("walletId"), c.Params("coin"))
	if err != nil {
		return StatusError(err)
	}
	return c.JSON(fiber.Map{"coin": info.Coin, "address": info.Address, "qr_code": info.QRCode})
}

// Reveal returns private key and recovery phrase after a password check.
// @Summary      Reveal secrets
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Router       /wallets/{walletId}/reveal [post]
func (h *Handler) Reveal(c *fiber.Ctx) error {
	var req revealRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	secrets, err := h.service.Reveal(c.UserContext(), uid, c.Params("walletId"), req.Password)
	if err != nil {
		return StatusError(err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(secrets)
}

func (h *Handler) activate(c *fiber.Ctx, uid, walletID string) error {
	if h.sessions == nil {
		return nil
	}
	if err := h.sessions.SetActiveWallet(c.UserContext(), uid, walletID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "store active wallet")
	}
	return nil
}

// StatusError maps wallet errors onto HTTP errors.
func StatusError(err error) error {
	switch {
	case errors.Is(err, ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, asset.ErrUnknownCoin), errors.Is(err, ErrEmptyAddress), errors.Is(err, ErrInvalidAddress):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case identity.Code(err) != "":
		return fiber.NewError(http.StatusUnauthorized, identity.FriendlyMessage(err))
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
