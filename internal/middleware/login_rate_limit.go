package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/cryptovault/cryptovault/internal/identity"
)

const loginRateKeyPrefix = "rl:login:"

// LoginRateLimit limits login attempts per email, or per IP when the body has
// none. Redis backs the counter when available and errors fail open; without
// Redis a per-key token bucket in process memory is used.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	local := newKeyedLimiter(rate.Every(time.Minute/time.Duration(maxPerMin)), maxPerMin)

	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		key := identity.NormalizeEmail(req.Email)
		if key == "" {
			key = c.IP()
		}

		if cache == nil {
			if !local.allow(key) {
				return tooManyAttempts()
			}
			return c.Next()
		}

		redisKey := loginRateKeyPrefix + key
		cnt, err := cache.Incr(c.UserContext(), redisKey).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), redisKey, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return tooManyAttempts()
		}
		return c.Next()
	}
}

func tooManyAttempts() error {
	return fiber.NewError(http.StatusTooManyRequests, identity.FriendlyMessage(identity.ErrTooManyRequests))
}

// maxLimiterKeys bounds memory; the table is reset when exceeded.
const maxLimiterKeys = 10000

type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{limiters: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

func (k *keyedLimiter) allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	lim, ok := k.limiters[strings.ToLower(key)]
	if !ok {
		if len(k.limiters) >= maxLimiterKeys {
			k.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(k.limit, k.burst)
		k.limiters[strings.ToLower(key)] = lim
	}
	return lim.Allow()
}
