package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptovault/cryptovault/internal/config"
	"github.com/cryptovault/cryptovault/internal/identity"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/session"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

var (
	ErrInvalidToken     = identity.ErrInvalidToken
	ErrTokenInvalidated = identity.ErrTokenInvalidated
)

// Wallets provisions and looks up the wallet a session points at.
type Wallets interface {
	Create(ctx context.Context, input wallet.CreateInput) (wallet.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Session is the outcome of a successful registration or login.
type Session struct {
	User     identity.User
	Tokens   TokenPair
	WalletID string
}

// Service issues and validates tokens and keeps the session store in step
// with login state.
type Service struct {
	cfg      config.Config
	ids      *identity.Service
	users    identity.Repository
	wallets  Wallets
	sessions session.Store
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(cfg config.Config, users identity.Repository, wallets Wallets, sessions session.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		ids:      identity.NewService(users),
		users:    users,
		wallets:  wallets,
		sessions: sessions,
		notifier: notifier,
		logger:   logging.Component(logger, "auth"),
		now:      time.Now,
	}
}

// Register creates the account and its first wallet. A wallet failure is
// logged and leaves the user without a wallet rather than failing signup.
func (s *Service) Register(ctx context.Context, creds identity.Credentials) (Session, error) {
	user, err := s.ids.Register(ctx, creds)
	if err != nil {
		return Session{}, err
	}

	var walletID string
	w, err := s.wallets.Create(ctx, wallet.CreateInput{OwnerID: user.ID, Label: "Main wallet"})
	if err != nil {
		s.logger.Warn("provision wallet failed", "user_id", user.ID, "error", err)
	} else {
		walletID = w.ID
	}

	return s.open(ctx, user, walletID)
}

// Login authenticates and restores the user's newest wallet as the active one.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (Session, error) {
	user, err := s.ids.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}

	var walletID string
	if w, err := s.wallets.GetByOwner(ctx, user.ID); err == nil {
		walletID = w.ID
	} else if !errors.Is(err, wallet.ErrWalletNotFound) {
		return Session{}, err
	}

	return s.open(ctx, user, walletID)
}

func (s *Service) open(ctx context.Context, user identity.User, walletID string) (Session, error) {
	tokens, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	if walletID != "" {
		if err := s.sessions.SetActiveWallet(ctx, user.ID, walletID); err != nil {
			return Session{}, fmt.Errorf("store active wallet: %w", err)
		}
	}
	s.stateChanged(ctx, user.ID, "signed_in")
	return Session{User: user, Tokens: tokens, WalletID: walletID}, nil
}

func (s *Service) issue(user identity.User) (TokenPair, error) {
	now := s.now()
	base := Claims{Email: user.Email, Version: user.TokenVersion}
	base.Subject = user.ID

	access := base
	access.Type = TokenAccess
	accessToken, err := signToken(access, s.cfg.JWTSecret, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh := base
	refresh.Type = TokenRefresh
	refreshToken, err := signToken(refresh, s.cfg.RefreshSecret, now, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

// Verify checks an access token and that it has not been revoked by logout.
func (s *Service) Verify(ctx context.Context, accessToken string) (Claims, error) {
	claims, err := parseToken(accessToken, s.cfg.JWTSecret, TokenAccess, s.now)
	if err != nil {
		return Claims{}, err
	}
	if err := s.checkVersion(ctx, claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := parseToken(refreshToken, s.cfg.RefreshSecret, TokenRefresh, s.now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.checkVersion(ctx, claims); err != nil {
		return TokenPair{}, err
	}

	access := Claims{Email: claims.Email, Version: claims.Version, Type: TokenAccess}
	access.Subject = claims.Subject
	token, err := signToken(access, s.cfg.JWTSecret, s.now(), s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: token, RefreshToken: refreshToken, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) checkVersion(ctx context.Context, claims Claims) error {
	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if user.TokenVersion != claims.Version {
		return ErrTokenInvalidated
	}
	return nil
}

// Logout revokes every outstanding token and clears the stored wallet reference.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1); err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	if err := s.sessions.Clear(ctx, user.ID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.stateChanged(ctx, user.ID, "signed_out")
	return nil
}

// Profile returns the user behind a verified token.
func (s *Service) Profile(ctx context.Context, userID string) (identity.User, error) {
	return s.ids.Get(ctx, userID)
}

// VerifyPassword re-checks the password of a signed in user.
func (s *Service) VerifyPassword(ctx context.Context, userID, password string) error {
	return s.ids.VerifyPassword(ctx, userID, password)
}

func (s *Service) stateChanged(ctx context.Context, userID, state string) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{Kind: notification.KindSession, Destination: userID, Body: state, CreatedAt: s.now().UTC()}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("session notification failed", "user_id", userID, "error", err)
	}
}
