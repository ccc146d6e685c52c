package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	byWallet map[string]User
	byID     map[string]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{byWallet: make(map[string]User), byID: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byWallet[user.Wallet]; exists {
		return ErrUserExists
	}
	r.byWallet[user.Wallet] = user
	r.byID[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByWallet(_ context.Context, wallet string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byWallet[wallet]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
