package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	redisOpTimeout       = 2 * time.Second
)

type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// Idempotency replays the first successful response to a repeated unsafe
// request carrying the same Idempotency-Key. It must run after JWTAuth: keys
// are scoped to the caller, method and request path, and requests with no
// authenticated caller are never replayed. Responses marked
// Cache-Control: no-store and non-2xx responses are not kept.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		uid, _ := c.Locals("user_id").(string)
		if key == "" || uid == "" {
			return c.Next()
		}
		cacheKey := idempotencyCacheKey(uid, c.Method(), c.Path(), key)
		log := logger.With(slog.String("user_id", uid), slog.String("idempotency_key", key))

		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return replayStored(c, cache, cacheKey, log)
		}

		release := func() {
			ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
			defer cancel()
			if err := cache.Del(ctx, cacheKey).Err(); err != nil {
				log.Warn("idempotency release failed", slog.Any("error", err))
			}
		}

		if err := c.Next(); err != nil {
			release()
			return err
		}

		res := c.Response()
		if res.StatusCode() < 200 || res.StatusCode() >= 300 || noStore(string(res.Header.Peek(fiber.HeaderCacheControl))) {
			release()
			return nil
		}

		payload, err := json.Marshal(replay{
			Status:      res.StatusCode(),
			ContentType: string(res.Header.ContentType()),
			Body:        string(res.Body()),
		})
		if err != nil {
			release()
			return nil
		}
		persistCtx, persistCancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			// The request already succeeded; a retry simply runs again.
			log.Error("persist idempotent response", slog.Any("error", err))
			release()
		}
		return nil
	}
}

func replayStored(c *fiber.Ctx, cache *redis.Client, cacheKey string, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	cached, err := cache.Get(ctx, cacheKey).Result()
	switch {
	case err == redis.Nil:
		// Released between SETNX and GET; the first attempt did not succeed.
		return fiber.NewError(fiber.StatusConflict, "duplicate request, retry")
	case err != nil:
		log.Error("idempotency lookup failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	case cached == inProgressMarker:
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored replay
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		log.Warn("decode stored idempotent response", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func idempotencyCacheKey(uid, method, path, key string) string {
	return idempotencyPrefix + uid + ":" + method + ":" + path + ":" + key
}

func noStore(cacheControl string) bool {
	for _, directive := range strings.Split(cacheControl, ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-store") {
			return true
		}
	}
	return false
}
