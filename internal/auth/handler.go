package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptovault/cryptovault/internal/identity"
)

// Handler exposes register, login, refresh, logout and profile endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	WalletID     string `json:"wallet_id,omitempty"`
}

func toSessionResponse(s Session) SessionResponse {
	return SessionResponse{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		ExpiresIn:    s.Tokens.ExpiresIn,
		WalletID:     s.WalletID,
	}
}

// Register signs up with email and password and provisions a wallet.
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201  {object}  SessionResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.Register(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toSessionResponse(s))
}

// Login validates credentials and returns a token pair.
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.svc.Login(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(toSessionResponse(s))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  TokenPair
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	pair, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(pair)
}

// Logout invalidates existing tokens and forgets the active wallet.
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.svc.Logout(c.UserContext(), uid); err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Me returns the caller's profile.
// @Summary      Profile
// @Tags         auth
// @Produce      json
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	user, err := h.svc.Profile(c.UserContext(), uid)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(fiber.Map{
		"user_id":       user.ID,
		"email":         user.Email,
		"token_version": user.TokenVersion,
		"created_at":    user.CreatedAt,
		"last_login":    user.LastLogin,
	})
}

// statusError maps identity codes onto HTTP status codes with a friendly message.
func statusError(err error) error {
	var code int
	switch {
	case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
		code = http.StatusBadRequest
	case errors.Is(err, identity.ErrEmailInUse):
		code = http.StatusConflict
	case errors.Is(err, identity.ErrTooManyRequests):
		code = http.StatusTooManyRequests
	case identity.Code(err) != "":
		code = http.StatusUnauthorized
	default:
		return fiber.NewError(http.StatusInternalServerError, identity.FriendlyMessage(err))
	}
	return fiber.NewError(code, identity.FriendlyMessage(err))
}
