package middleware

import (
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const loginRateKeyPrefix = "rl:login:"

// LoginRateLimit caps login attempts per wallet address, or per client IP when
// the body carries no address. Redis counts attempts in fixed one-minute
// windows; without Redis the in-process fallback store is used.
func LoginRateLimit(cache *redis.Client, fallback *LimiterStore, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		key := loginRateKey(c)

		if cache == nil {
			if fallback != nil && !fallback.Allow(key) {
				return tooManyAttempts()
			}
			return c.Next()
		}

		redisKey := loginRateKeyPrefix + key
		cnt, err := cache.Incr(c.UserContext(), redisKey).Result()
		if err != nil {
			// fail open
			logger.Warn("login rate limit unavailable", slog.Any("error", err))
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

// loginRateKey hashes the identity so raw addresses and IPs never land in Redis.
func loginRateKey(c *fiber.Ctx) string {
	var req struct {
		Address string `json:"address"`
	}
	_ = c.BodyParser(&req)
	subject := "ip:" + c.IP()
	if addr := strings.TrimSpace(req.Address); addr != "" {
		subject = "addr:" + addr
	}
	sum := blake2b.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:16])
}

func tooManyAttempts() error {
	return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
}
