package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserExists is returned when the wallet is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// User is a wallet owner. The wallet address never changes once stored.
type User struct {
	ID        string
	Wallet    string
	CreatedAt time.Time
}
