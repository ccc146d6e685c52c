package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore keeps per-key token buckets in process memory. It backs the
// login limiter when Redis is not configured.
type LimiterStore struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientEntry
	idle    time.Duration
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore allows perMinute events per key with an equal burst.
func NewLimiterStore(perMinute int) *LimiterStore {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &LimiterStore{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		clients: map[string]*clientEntry{},
		idle:    10 * time.Minute,
	}
}

// Allow reports whether another event for key is permitted now.
func (s *LimiterStore) Allow(key string) bool {
	s.mu.Lock()
	e, ok := s.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = e
	}
	e.lastSeen = time.Now()
	s.mu.Unlock()
	return e.limiter.Allow()
}

// RunCleanup drops idle keys every interval until ctx is done.
func (s *LimiterStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now().Add(-s.idle))
		}
	}
}

func (s *LimiterStore) sweep(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.clients {
		if v.lastSeen.Before(cutoff) {
			delete(s.clients, k)
		}
	}
}
