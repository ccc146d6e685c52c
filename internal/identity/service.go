package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service manages the user lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindOrCreate returns the user owning wallet, creating it on first sight.
// A concurrent insert of the same wallet is resolved by re-fetching.
func (s *Service) FindOrCreate(ctx context.Context, wallet string) (User, error) {
	if wallet == "" {
		return User{}, errors.New("wallet is required")
	}
	user, err := s.repo.FindByWallet(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	user = User{
		ID:        uuid.New().String(),
		Wallet:    wallet,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return s.repo.FindByWallet(ctx, wallet)
		}
		return User{}, err
	}
	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
