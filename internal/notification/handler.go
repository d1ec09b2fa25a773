package notification

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the caller's inbox.
type Handler struct {
	inbox Inbox
}

func NewHandler(inbox Inbox) *Handler {
	return &Handler{inbox: inbox}
}

// Drain returns and clears pending notifications, newest first.
// @Summary      Pending notifications
// @Tags         notifications
// @Produce      json
// @Success      200  {array}  Message
// @Router       /notifications [get]
func (h *Handler) Drain(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	msgs, err := h.inbox.Drain(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(msgs)
}
