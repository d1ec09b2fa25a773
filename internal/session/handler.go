package session

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the caller's session state.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Get returns the active wallet reference and preferences.
// @Summary      Session state
// @Tags         session
// @Produce      json
// @Success      200  {object}  State
// @Router       /session [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	state, err := h.store.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(state)
}

// UpdatePreferences replaces the caller's display preferences.
// @Summary      Update preferences
// @Tags         session
// @Accept       json
// @Produce      json
// @Success      200  {object}  Preferences
// @Router       /session/preferences [put]
func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	prefs := DefaultPreferences()
	if err := c.BodyParser(&prefs); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := prefs.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.store.SetPreferences(c.UserContext(), uid, prefs); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(prefs)
}
