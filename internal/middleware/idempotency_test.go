package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cryptovault/cryptovault/internal/logging"
)

type idempotencyHarness struct {
	app   *fiber.App
	mr    *miniredis.Miniredis
	calls atomic.Int32
}

// newIdempotencyHarness mounts the middleware behind a stand-in for JWTAuth
// that trusts the X-Test-User header.
func newIdempotencyHarness(t *testing.T) *idempotencyHarness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	h := &idempotencyHarness{mr: mr}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid != "" {
			c.Locals("user_id", uid)
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := h.calls.Add(1)
		uid, _ := c.Locals("user_id").(string)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": uid, "call": n})
	})
	app.Post("/other", func(c *fiber.Ctx) error {
		h.calls.Add(1)
		return c.JSON(fiber.Map{"route": "other"})
	})
	app.Post("/wallets/:walletId/reveal", func(c *fiber.Ctx) error {
		h.calls.Add(1)
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(fiber.Map{"mnemonic": "abandon abandon about"})
	})
	app.Post("/flaky", func(c *fiber.Ctx) error {
		if h.calls.Add(1) == 1 {
			return fiber.NewError(fiber.StatusBadGateway, "upstream down")
		}
		return c.JSON(fiber.Map{"ok": true})
	})
	h.app = app
	return h
}

func (h *idempotencyHarness) post(t *testing.T, path, user, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	h := newIdempotencyHarness(t)

	for i := 0; i < 2; i++ {
		if status, _ := h.post(t, "/resource", "alice", ""); status != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
		}
	}
	if got := h.calls.Load(); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", got)
	}
}

func TestIdempotencyReplaysForSameCaller(t *testing.T) {
	h := newIdempotencyHarness(t)

	status, first := h.post(t, "/resource", "alice", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("first request: expected %d got %d", fiber.StatusCreated, status)
	}
	status, second := h.post(t, "/resource", "alice", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("replay: expected %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected replayed body %s got %s", first, second)
	}
	if got := h.calls.Load(); got != 1 {
		t.Fatalf("expected handler to run once, ran %d times", got)
	}
}

func TestIdempotencyKeyIsScopedToCallerAndRoute(t *testing.T) {
	h := newIdempotencyHarness(t)

	_, alice := h.post(t, "/resource", "alice", "shared-key")
	_, bob := h.post(t, "/resource", "bob", "shared-key")
	if alice == bob || !strings.Contains(bob, `"user":"bob"`) {
		t.Fatalf("bob received another caller's response: %s", bob)
	}

	status, other := h.post(t, "/other", "alice", "shared-key")
	if status != fiber.StatusOK || !strings.Contains(other, `"route":"other"`) {
		t.Fatalf("key replayed across routes: %d %s", status, other)
	}
	if got := h.calls.Load(); got != 3 {
		t.Fatalf("expected 3 handler runs, got %d", got)
	}
}

func TestIdempotencyIgnoresUnauthenticatedRequests(t *testing.T) {
	h := newIdempotencyHarness(t)

	h.post(t, "/resource", "", "anon-key")
	h.post(t, "/resource", "", "anon-key")
	if got := h.calls.Load(); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", got)
	}
	if keys := h.mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected nothing stored, got %v", keys)
	}
}

func TestIdempotencyNeverStoresRevealedSecrets(t *testing.T) {
	h := newIdempotencyHarness(t)

	for i := 0; i < 2; i++ {
		status, body := h.post(t, "/wallets/w1/reveal", "alice", "secret-key")
		if status != fiber.StatusOK || !strings.Contains(body, "mnemonic") {
			t.Fatalf("reveal %d: %d %s", i, status, body)
		}
		for _, k := range h.mr.Keys() {
			if v, _ := h.mr.Get(k); strings.Contains(v, "abandon") {
				t.Fatalf("secret persisted under %s", k)
			}
		}
	}
	if keys := h.mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected reservation to be released, got %v", keys)
	}

	// Another caller reusing the key on a different route gets its own response.
	status, body := h.post(t, "/other", "mallory", "secret-key")
	if status != fiber.StatusOK || strings.Contains(body, "mnemonic") {
		t.Fatalf("secret leaked: %d %s", status, body)
	}
}

func TestIdempotencyRetriesAfterFailure(t *testing.T) {
	h := newIdempotencyHarness(t)

	if status, _ := h.post(t, "/flaky", "alice", "retry-key"); status != fiber.StatusBadGateway {
		t.Fatalf("expected first attempt to fail, got %d", status)
	}
	if status, body := h.post(t, "/flaky", "alice", "retry-key"); status != fiber.StatusOK || !strings.Contains(body, "ok") {
		t.Fatalf("expected retry to run, got %d %s", status, body)
	}
	if got := h.calls.Load(); got != 2 {
		t.Fatalf("expected 2 handler runs, got %d", got)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	h := newIdempotencyHarness(t)
	if err := h.mr.Set(idempotencyCacheKey("alice", fiber.MethodPost, "/resource", "busy"), inProgressMarker); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if status, _ := h.post(t, "/resource", "alice", "busy"); status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if got := h.calls.Load(); got != 0 {
		t.Fatalf("handler ran while reservation was held")
	}
}
