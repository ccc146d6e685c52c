package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "challenge:v1:"

type storedChallenge struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisRepository keeps challenges in Redis. Keys outlive the challenge by a
// retention window so an expired nonce is still reported as expired rather
// than unknown.
type RedisRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisRepository builds a Redis-backed challenge repository.
func NewRedisRepository(client *redis.Client, retention time.Duration) *RedisRepository {
	return &RedisRepository{client: client, retention: retention}
}

// Create stores the challenge with a TTL covering its lifetime plus retention.
func (r *RedisRepository) Create(ctx context.Context, c Challenge) error {
	payload, err := json.Marshal(storedChallenge{Nonce: c.Nonce, ExpiresAt: c.ExpiresAt.UTC()})
	if err != nil {
		return err
	}
	ttl := time.Until(c.ExpiresAt) + r.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	stored, err := r.client.SetNX(ctx, redisKeyPrefix+c.Nonce, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	if !stored {
		return ErrExists
	}
	return nil
}

// Get fetches a challenge by nonce.
func (r *RedisRepository) Get(ctx context.Context, nonce string) (Challenge, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+nonce).Result()
	return decodeStored(raw, err)
}

// Take atomically reads and deletes the challenge key.
func (r *RedisRepository) Take(ctx context.Context, nonce string) (Challenge, error) {
	raw, err := r.client.GetDel(ctx, redisKeyPrefix+nonce).Result()
	return decodeStored(raw, err)
}

func decodeStored(raw string, err error) (Challenge, error) {
	if errors.Is(err, redis.Nil) {
		return Challenge{}, ErrNotFound
	}
	if err != nil {
		return Challenge{}, err
	}
	var stored storedChallenge
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return Challenge{Nonce: stored.Nonce, ExpiresAt: stored.ExpiresAt.UTC()}, nil
}
