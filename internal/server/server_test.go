package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cryptovault/cryptovault/internal/config"
	"github.com/cryptovault/cryptovault/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithCache(t, nil)
}

func newTestServerWithCache(t *testing.T, cache *redis.Client) *Server {
	t.Helper()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	cfg := config.Config{
		AppName:             "CryptoVault",
		Env:                 "test",
		Port:                "0",
		JWTSecret:           "access",
		RefreshSecret:       "refresh",
		AccessTokenTTL:      time.Minute,
		RefreshTokenTTL:     time.Hour,
		WalletEncryptionKey: "wallet-key",
		LoginPerMinute:      5,
		IdempotencyTTL:      time.Minute,
		Providers: config.Providers{
			CoinGeckoURL:  down.URL,
			CoinCapURL:    down.URL,
			Timeout:       time.Second,
			PriceCacheTTL: 2 * time.Minute,
			AlertSchedule: "@every 1m",
		},
	}
	srv, err := New(cfg, nil, cache, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	return callWithKey(t, app, method, path, token, "", body)
}

func callWithKey(t *testing.T, app *fiber.App, method, path, token, idempotencyKey, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestRegisterSendLogoutFlow(t *testing.T) {
	app := newTestServer(t).App()

	code, reg := call(t, app, fiber.MethodPost, "/api/v1/auth/register", "", `{"email":"flow@example.com","password":"secret1"}`)
	if code != fiber.StatusCreated {
		t.Fatalf("register: expected 201 got %d (%v)", code, reg)
	}
	token, _ := reg["access_token"].(string)
	walletID, _ := reg["wallet_id"].(string)
	if token == "" || walletID == "" {
		t.Fatalf("register response missing token or wallet: %v", reg)
	}

	code, body := call(t, app, fiber.MethodPost, "/api/v1/wallets/"+walletID+"/send", token, `{"coin":"ETH","to":"0x000000000000000000000000000000000000dEaD","amount":""}`)
	if code != fiber.StatusBadRequest || body["error"] != "amount is required" {
		t.Fatalf("empty amount: got %d %v", code, body)
	}
	code, body = call(t, app, fiber.MethodPost, "/api/v1/wallets/"+walletID+"/send", token, `{"coin":"ETH","to":"","amount":"0.1"}`)
	if code != fiber.StatusBadRequest {
		t.Fatalf("empty address: got %d %v", code, body)
	}
	code, body = call(t, app, fiber.MethodPost, "/api/v1/wallets/"+walletID+"/send", token, `{"coin":"ETH","to":"0x000000000000000000000000000000000000dEaD","amount":"0.2"}`)
	if code != fiber.StatusCreated || body["balance"] != "1" {
		t.Fatalf("send: got %d %v", code, body)
	}

	code, body = call(t, app, fiber.MethodGet, "/api/v1/session", token, "")
	if code != fiber.StatusOK || body["active_wallet_id"] != walletID {
		t.Fatalf("session: got %d %v", code, body)
	}

	if code, body = call(t, app, fiber.MethodPost, "/api/v1/auth/logout", token, ""); code != fiber.StatusOK {
		t.Fatalf("logout: got %d %v", code, body)
	}
	if code, _ = call(t, app, fiber.MethodGet, "/api/v1/session", token, ""); code != fiber.StatusUnauthorized {
		t.Fatalf("expected revoked token, got %d", code)
	}
}

func TestPriceFallsBackToMockWhenProvidersDown(t *testing.T) {
	app := newTestServer(t).App()

	code, body := call(t, app, fiber.MethodGet, "/api/v1/market/prices/BTC", "", "")
	if code != fiber.StatusOK {
		t.Fatalf("expected 200 got %d (%v)", code, body)
	}
	if body["mock"] != true || body["source"] != "fallback" {
		t.Fatalf("expected mock fallback quote, got %v", body)
	}
}

func TestLoginFriendlyError(t *testing.T) {
	app := newTestServer(t).App()

	code, body := call(t, app, fiber.MethodPost, "/api/v1/auth/login", "", `{"email":"nobody@example.com","password":"secret1"}`)
	if code != fiber.StatusUnauthorized || body["error"] != "Account not found. Please check your email or register." {
		t.Fatalf("got %d %v", code, body)
	}
}

func register(t *testing.T, app *fiber.App, email string) (token, walletID string) {
	t.Helper()
	code, reg := call(t, app, fiber.MethodPost, "/api/v1/auth/register", "", `{"email":"`+email+`","password":"secret1"}`)
	if code != fiber.StatusCreated {
		t.Fatalf("register %s: expected 201 got %d (%v)", email, code, reg)
	}
	token, _ = reg["access_token"].(string)
	walletID, _ = reg["wallet_id"].(string)
	return token, walletID
}

func TestIdempotencyKeyDoesNotReplaySecrets(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := newTestServerWithCache(t, cache).App()

	aliceToken, aliceWallet := register(t, app, "alice@example.com")
	code, body := callWithKey(t, app, fiber.MethodPost, "/api/v1/wallets/"+aliceWallet+"/reveal", aliceToken, "shared-key", `{"password":"secret1"}`)
	if code != fiber.StatusOK || body["mnemonic"] == nil {
		t.Fatalf("reveal: got %d %v", code, body)
	}
	for _, k := range mr.Keys() {
		if v, _ := mr.Get(k); strings.Contains(v, "mnemonic") {
			t.Fatalf("revealed secrets stored under %s", k)
		}
	}

	code, body = callWithKey(t, app, fiber.MethodPost, "/api/v1/auth/logout", "", "shared-key", "")
	if code != fiber.StatusUnauthorized || body["mnemonic"] != nil {
		t.Fatalf("unauthenticated replay: got %d %v", code, body)
	}

	bobToken, bobWallet := register(t, app, "bob@example.com")
	_, aliceSecrets := call(t, app, fiber.MethodPost, "/api/v1/wallets/"+aliceWallet+"/reveal", aliceToken, `{"password":"secret1"}`)
	code, body = callWithKey(t, app, fiber.MethodPost, "/api/v1/wallets/"+bobWallet+"/reveal", bobToken, "shared-key", `{"password":"secret1"}`)
	if code != fiber.StatusOK || body["mnemonic"] == nil || body["mnemonic"] == aliceSecrets["mnemonic"] {
		t.Fatalf("bob reveal: got %d %v", code, body)
	}
}

func TestClientTxIDReusableAcrossUsers(t *testing.T) {
	app := newTestServer(t).App()
	aliceToken, aliceWallet := register(t, app, "alice@example.com")
	bobToken, bobWallet := register(t, app, "bob@example.com")

	send := `{"coin":"ETH","to":"0x000000000000000000000000000000000000dEaD","amount":"0.1","client_tx_id":"order-1"}`
	if code, body := call(t, app, fiber.MethodPost, "/api/v1/wallets/"+aliceWallet+"/send", aliceToken, send); code != fiber.StatusCreated {
		t.Fatalf("alice send: got %d %v", code, body)
	}
	if code, body := call(t, app, fiber.MethodPost, "/api/v1/wallets/"+bobWallet+"/send", bobToken, send); code != fiber.StatusCreated {
		t.Fatalf("bob send with the same client id: got %d %v", code, body)
	}
	if code, _ := call(t, app, fiber.MethodPost, "/api/v1/wallets/"+aliceWallet+"/send", aliceToken, send); code != fiber.StatusConflict {
		t.Fatalf("expected alice's repeat to conflict, got %d", code)
	}
}
