package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cryptovault/cryptovault/internal/config"
	"github.com/cryptovault/cryptovault/internal/identity"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/session"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

type fakeWallets struct {
	byOwner map[string]wallet.Wallet
	fail    bool
}

func (f *fakeWallets) Create(_ context.Context, in wallet.CreateInput) (wallet.Wallet, error) {
	if f.fail {
		return wallet.Wallet{}, errors.New("keystore offline")
	}
	w := wallet.Wallet{ID: uuid.NewString(), OwnerID: in.OwnerID, Label: in.Label}
	f.byOwner[in.OwnerID] = w
	return w, nil
}

func (f *fakeWallets) GetByOwner(_ context.Context, owner string) (wallet.Wallet, error) {
	w, ok := f.byOwner[owner]
	if !ok {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, nil
}

type fixture struct {
	svc      *Service
	wallets  *fakeWallets
	sessions session.Store
	inbox    notification.Inbox
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	wallets := &fakeWallets{byOwner: map[string]wallet.Wallet{}}
	sessions := session.NewMemoryStore()
	inbox := notification.NewMemoryInbox()
	svc := NewService(cfg, identity.NewMemoryRepository(), wallets, sessions, inbox, logging.Discard())
	return fixture{svc: svc, wallets: wallets, sessions: sessions, inbox: inbox}
}

func TestRegisterProvisionsWalletAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Register(ctx, identity.Credentials{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.WalletID == "" || s.Tokens.AccessToken == "" || s.Tokens.RefreshToken == "" {
		t.Fatalf("incomplete session: %+v", s)
	}
	state, err := f.sessions.Get(ctx, s.User.ID)
	if err != nil {
		t.Fatalf("session get: %v", err)
	}
	if state.ActiveWalletID != s.WalletID {
		t.Fatalf("expected active wallet %s, got %s", s.WalletID, state.ActiveWalletID)
	}

	claims, err := f.svc.Verify(ctx, s.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != s.User.ID || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterSurvivesWalletFailure(t *testing.T) {
	f := newFixture(t)
	f.wallets.fail = true

	s, err := f.svc.Register(context.Background(), identity.Credentials{Email: "bob@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.WalletID != "" {
		t.Fatalf("expected no wallet, got %s", s.WalletID)
	}
}

func TestLogoutClearsWalletAndRevokesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Register(ctx, identity.Credentials{Email: "carol@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.svc.Logout(ctx, s.User.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	state, err := f.sessions.Get(ctx, s.User.ID)
	if err != nil {
		t.Fatalf("session get: %v", err)
	}
	if state.ActiveWalletID != "" {
		t.Fatalf("expected wallet reference cleared, got %s", state.ActiveWalletID)
	}
	if _, err := f.svc.Verify(ctx, s.Tokens.AccessToken); !errors.Is(err, ErrTokenInvalidated) {
		t.Fatalf("expected invalidated access token, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, s.Tokens.RefreshToken); !errors.Is(err, ErrTokenInvalidated) {
		t.Fatalf("expected invalidated refresh token, got %v", err)
	}

	msgs, err := f.inbox.Drain(ctx, s.User.ID)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Kind != notification.KindSession || msgs[0].Body != "signed_out" {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestLoginRestoresWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, identity.Credentials{Email: "dave@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.svc.Logout(ctx, reg.User.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	s, err := f.svc.Login(ctx, identity.Credentials{Email: "DAVE@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.WalletID != reg.WalletID {
		t.Fatalf("expected wallet %s, got %s", reg.WalletID, s.WalletID)
	}
	if _, err := f.svc.Verify(ctx, s.Tokens.AccessToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	if _, err := f.svc.Login(ctx, identity.Credentials{Email: "dave@example.com", Password: "nope"}); identity.FriendlyMessage(err) != "Incorrect password. Please try again." {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVerifyRejectsRefreshTokenAndForeignAlgorithm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Register(ctx, identity.Credentials{Email: "erin@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Verify(ctx, s.Tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token to be rejected as access token, got %v", err)
	}

	claims := Claims{Type: TokenAccess}
	claims.Subject = s.User.ID
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := f.svc.Verify(ctx, unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unsigned token rejected, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Register(ctx, identity.Credentials{Email: "frank@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := f.svc.Verify(ctx, s.Tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}
