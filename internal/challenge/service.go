package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service issues and resolves login challenges.
type Service struct {
	repo   Repository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a challenge service minting nonces valid for ttl.
func NewService(repo Repository, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ttl: ttl, now: time.Now, logger: logger.With("component", "challenge")}
}

// Issue mints a fresh random nonce and persists it with its expiry.
func (s *Service) Issue(ctx context.Context) (Challenge, error) {
	c := Challenge{
		Nonce:     uuid.NewString(),
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Challenge{}, fmt.Errorf("issue challenge: %w", err)
	}
	return c, nil
}

// Lookup returns the challenge for nonce without consuming it.
func (s *Service) Lookup(ctx context.Context, nonce string) (Challenge, error) {
	return s.repo.Get(ctx, nonce)
}

// Consume returns the challenge for nonce and invalidates it.
func (s *Service) Consume(ctx context.Context, nonce string) (Challenge, error) {
	return s.repo.Take(ctx, nonce)
}

// RunJanitor periodically purges expired challenges until ctx is done. It is a
// no-op for backends that expire entries on their own.
func (s *Service) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	purger, ok := s.repo.(Purger)
	if !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.DeleteExpired(ctx, s.now().Add(-retention))
			if err != nil {
				s.logger.Warn("purge expired challenges", slog.Any("error", err))
				continue
			}
			if n > 0 {
				s.logger.Debug("purged expired challenges", slog.Int64("count", n))
			}
		}
	}
}
