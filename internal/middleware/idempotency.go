package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	idempotencyOpTimeout = 2 * time.Second
	maxIdempotencyKeyLen = 255
)

type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// Idempotency replays the first response for a repeated Idempotency-Key.
// Requests without the header pass through untouched. Keys are scoped to the
// session user so two users cannot collide on the same key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" || cache == nil {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID, _ := c.Locals(LocalUserID).(string)
		cacheKey := idempotencyPrefix + userID + ":" + c.Path() + ":" + key

		ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		defer cancel()

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return replay(ctx, c, cache, cacheKey, logger)
		}

		if err := c.Next(); err != nil {
			forget(cache, cacheKey)
			return err
		}

		stored := storedResponse{
			Status:      c.Response().StatusCode(),
			Body:        string(c.Response().Body()),
			ContentType: string(c.Response().Header.ContentType()),
		}
		if stored.Status >= fiber.StatusInternalServerError {
			forget(cache, cacheKey)
			return nil
		}

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("encode idempotent response", slog.Any("error", err))
			forget(cache, cacheKey)
			return nil
		}
		persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Error("persist idempotent response", slog.Any("error", err))
			forget(cache, cacheKey)
		}
		return nil
	}
}

func replay(ctx context.Context, c *fiber.Ctx, cache *redis.Client, cacheKey string, logger *slog.Logger) error {
	cached, err := cache.Get(ctx, cacheKey).Result()
	if errors.Is(err, redis.Nil) || cached == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	if err != nil {
		logger.Error("idempotency lookup failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("decode stored idempotent response", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func forget(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}
