package alerts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
)

// Handler exposes price-alert endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Coin      string `json:"coin"`
	Threshold string `json:"threshold"`
	Direction string `json:"direction"`
	Repeat    bool   `json:"repeat"`
}

// Create adds a price alert.
// @Summary      Create alert
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Success      201  {object}  Alert
// @Router       /alerts [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	a, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:   uid,
		Coin:      req.Coin,
		Threshold: req.Threshold,
		Direction: req.Direction,
		Repeat:    req.Repeat,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(a)
}

// List returns the caller's alerts.
// @Summary      List alerts
// @Tags         alerts
// @Produce      json
// @Success      200  {array}  Alert
// @Router       /alerts [get]
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	list, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if list == nil {
		list = []Alert{}
	}
	return c.JSON(list)
}

// Delete removes an alert.
// @Summary      Delete alert
// @Tags         alerts
// @Param        alertId  path  string  true  "Alert ID"
// @Router       /alerts/{alertId} [delete]
func (h *Handler) Delete(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.Delete(c.UserContext(), uid, c.Params("alertId")); err != nil {
		return statusError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Suggest proposes a threshold a percentage away from the current price.
// @Summary      Suggested threshold
// @Tags         alerts
// @Produce      json
// @Param        coin       query  string  true   "Coin symbol"
// @Param        direction  query  string  true   "above or below"
// @Param        percent    query  number  false  "Offset percent (default 5)"
// @Router       /alerts/suggest [get]
func (h *Handler) Suggest(c *fiber.Ctx) error {
	pct := decimal.NewFromInt(5)
	if raw := c.Query("percent"); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil || p.IsNegative() {
			return fiber.NewError(http.StatusBadRequest, "percent must be a non-negative number")
		}
		pct = p
	}
	threshold, err := h.service.Suggest(c.UserContext(), c.Query("coin"), c.Query("direction"), pct)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(fiber.Map{"coin": asset.Normalize(c.Query("coin")), "threshold": threshold.StringFixed(2)})
}

func statusError(err error) error {
	switch {
	case errors.Is(err, ErrAlertNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidThreshold), errors.Is(err, ErrInvalidDirection), errors.Is(err, asset.ErrUnknownCoin):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
