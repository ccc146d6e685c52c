package challenge

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

// NewMemoryRepository builds an in-memory challenge store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{challenges: make(map[string]Challenge)}
}

func (r *memoryRepository) Create(_ context.Context, c Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.challenges[c.Nonce]; exists {
		return ErrExists
	}
	r.challenges[c.Nonce] = c
	return nil
}

func (r *memoryRepository) Get(_ context.Context, nonce string) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[nonce]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) Take(_ context.Context, nonce string) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[nonce]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	delete(r.challenges, nonce)
	return c, nil
}

func (r *memoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for nonce, c := range r.challenges {
		if c.ExpiresAt.Before(before) {
			delete(r.challenges, nonce)
			n++
		}
	}
	return n, nil
}
