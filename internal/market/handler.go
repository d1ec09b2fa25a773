package market

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/asset"
)

// Handler exposes market-data endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns quotes for the symbols query parameter, or every supported coin.
// @Summary      List prices
// @Tags         market
// @Produce      json
// @Param        symbols  query  string  false  "Comma separated symbols"
// @Success      200  {array}  Quote
// @Router       /market/prices [get]
func (h *Handler) List(c *fiber.Ctx) error {
	symbols := asset.Symbols()
	if raw := c.Query("symbols"); raw != "" {
		symbols = symbols[:0:0]
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	}
	quotes, err := h.service.Quotes(c.UserContext(), symbols)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(quotes)
}

// Get returns a single quote.
// @Summary      Coin price
// @Tags         market
// @Produce      json
// @Param        symbol  path  string  true  "Coin symbol"
// @Success      200  {object}  Quote
// @Router       /market/prices/{symbol} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	q, err := h.service.Quote(c.UserContext(), c.Params("symbol"))
	if err != nil {
		return statusError(err)
	}
	return c.JSON(q)
}

// Rate returns the exchange rate between two coins.
// @Summary      Exchange rate
// @Tags         market
// @Produce      json
// @Param        from  query  string  true  "Source coin"
// @Param        to    query  string  true  "Target coin"
// @Router       /market/rate [get]
func (h *Handler) Rate(c *fiber.Ctx) error {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		return fiber.NewError(http.StatusBadRequest, "from and to are required")
	}
	rate, err := h.service.ExchangeRate(c.UserContext(), from, to)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(fiber.Map{"from": asset.Normalize(from), "to": asset.Normalize(to), "rate": rate.String()})
}

// Chart returns a price series for a coin.
// @Summary      Price chart
// @Tags         market
// @Produce      json
// @Param        symbol     path   string  true   "Coin symbol"
// @Param        timeframe  query  string  false  "1h, 1d, 1w, 1m or 1y"
// @Success      200  {array}  Point
// @Router       /market/chart/{symbol} [get]
func (h *Handler) Chart(c *fiber.Ctx) error {
	points, err := h.service.Chart(c.UserContext(), c.Params("symbol"), c.Query("timeframe", "1d"))
	if err != nil {
		return statusError(err)
	}
	return c.JSON(fiber.Map{"symbol": asset.Normalize(c.Params("symbol")), "points": points})
}

func statusError(err error) error {
	switch {
	case errors.Is(err, asset.ErrUnknownCoin), errors.Is(err, ErrUnknownTimeframe):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
