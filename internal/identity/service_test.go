package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: " Alice@Example.com ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID || authed.LastLogin == nil {
		t.Fatalf("unexpected authenticated user: %+v", authed)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Email: "not-an-email", Password: "hunter22"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "bob@example.com", Password: "123"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "bob@example.com", Password: "123456"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, Credentials{Email: "BOB@example.com", Password: "123456"}); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected email in use, got %v", err)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	if _, err := svc.Register(ctx, Credentials{Email: "carol@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Authenticate(ctx, Credentials{Email: "carol@example.com", Password: "wrong"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected wrong password, got %v", err)
	}
	if FriendlyMessage(err) != "Incorrect password. Please try again." {
		t.Fatalf("unexpected friendly message %q", FriendlyMessage(err))
	}

	_, err = svc.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	if Code(err) != "auth/user-not-found" {
		t.Fatalf("expected user-not-found code, got %v", err)
	}
}

func TestFriendlyMessageFallback(t *testing.T) {
	if got := FriendlyMessage(errors.New("boom")); got != "Something went wrong. Please try again later." {
		t.Fatalf("unexpected fallback %q", got)
	}
	if got := FriendlyMessage(ErrTooManyRequests); got != "Too many attempts. Please try again later." {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	user, err := svc.Register(ctx, Credentials{Email: "dave@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.VerifyPassword(ctx, user.ID, "secret1"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.VerifyPassword(ctx, user.ID, "nope"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected wrong password, got %v", err)
	}
}
